package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var ErrLockNotAcquired = errors.New("lock_not_acquired")

// Locker is a single-node redis lease lock. A nil Locker grants every lock,
// which is what the service uses when redis is not configured.
type Locker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    10 * time.Second,
	}
}

// Acquire takes the lease on key and returns its release func. When the lease
// is held elsewhere it returns ErrLockNotAcquired.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	if key == "" {
		return nil, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return func() {
		_ = l.script.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err()
	}, nil
}
