package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/clinicbill/internal/clock"
	obsmetrics "github.com/smallbiznis/clinicbill/internal/observability/metrics"
	"github.com/smallbiznis/clinicbill/internal/observability/tracing"
	"github.com/smallbiznis/clinicbill/internal/sequence/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics        `optional:"true"`
	Billing *obsmetrics.BillingMetrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	metrics *obsmetrics.Metrics
	billing *obsmetrics.BillingMetrics
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewService(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("sequence.service"),
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
		billing: p.Billing,
		sleep:   sleepContext,
	}
}

// Allocate issues the next number for the request's scope using optimistic
// compare-and-swap. A lost race re-reads the counter and retries with a
// linear backoff until the attempt budget is spent.
func (s *Service) Allocate(ctx context.Context, req domain.Request) (alloc domain.Allocation, err error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return domain.Allocation{}, err
	}

	ctx, span := tracing.Start(ctx, "sequence.allocate",
		attribute.String("sequence.stream", req.Stream),
		attribute.String("sequence.reset", string(req.Reset)),
	)
	defer func() { tracing.End(span, err) }()

	at := req.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	scopeKey := domain.ScopeKey(req.Prefix, req.Separator, req.Reset, at)
	key := domain.DocumentKey(req.Stream, scopeKey)

	attempts := req.MaxAttempts
	if req.FailFast {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		current, err := s.ensure(ctx, key, req.Stream, scopeKey)
		if err != nil {
			return domain.Allocation{}, err
		}

		next := current.Value + 1
		swapped, err := s.repo.CompareAndSwap(ctx, key, current.Value, next, s.clock.Now())
		if err != nil {
			return domain.Allocation{}, fmt.Errorf("increment sequence %s: %w", key, err)
		}
		if swapped {
			s.metrics.RecordSequenceAllocation(ctx, req.Stream, attempt-1)
			s.billing.ObserveSequenceAttempts(req.Stream, attempt)
			span.SetAttributes(attribute.Int("sequence.attempts", attempt))
			return domain.Allocation{
				Number:   domain.Format(scopeKey, req.Separator, req.Padding, next),
				ScopeKey: scopeKey,
				Key:      key,
				Value:    next,
				Attempts: attempt,
			}, nil
		}

		s.log.Debug("sequence compare-and-swap lost",
			zap.String("key", key),
			zap.Int64("expected", current.Value),
			zap.Int("attempt", attempt),
		)
		if attempt == attempts {
			break
		}
		wait := time.Duration(attempt) * req.Backoff
		s.billing.ObserveSequenceBackoff(wait)
		if err := s.sleep(ctx, wait); err != nil {
			return domain.Allocation{}, err
		}
	}

	s.billing.IncSequenceExhausted(req.Stream)
	s.log.Warn("sequence allocation exhausted",
		zap.String("key", key),
		zap.Int("attempts", attempts),
	)
	return domain.Allocation{}, fmt.Errorf("%w: %s after %d attempts", domain.ErrSequenceCollision, key, attempts)
}

func (s *Service) Peek(ctx context.Context, req domain.Request) (domain.Allocation, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return domain.Allocation{}, err
	}

	at := req.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	scopeKey := domain.ScopeKey(req.Prefix, req.Separator, req.Reset, at)
	key := domain.DocumentKey(req.Stream, scopeKey)

	current, err := s.repo.Find(ctx, key)
	if err != nil {
		return domain.Allocation{}, err
	}
	next := int64(1)
	if current != nil {
		next = current.Value + 1
	}
	return domain.Allocation{
		Number:   domain.Format(scopeKey, req.Separator, req.Padding, next),
		ScopeKey: scopeKey,
		Key:      key,
		Value:    next,
	}, nil
}

// ensure returns the counter for key, creating it at zero on first use.
// Losing the creation race is fine: the winner's document is re-read.
func (s *Service) ensure(ctx context.Context, key, stream, scopeKey string) (*domain.Sequence, error) {
	current, err := s.repo.Find(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read sequence %s: %w", key, err)
	}
	if current != nil {
		return current, nil
	}

	now := s.clock.Now()
	fresh := &domain.Sequence{
		Key:       key,
		Stream:    stream,
		ScopeKey:  scopeKey,
		Value:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.repo.Create(ctx, fresh)
	switch {
	case err == nil:
		return fresh, nil
	case errors.Is(err, domain.ErrSequenceExists):
		current, err = s.repo.Find(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read sequence %s: %w", key, err)
		}
		if current == nil {
			return nil, fmt.Errorf("sequence %s vanished after create conflict", key)
		}
		return current, nil
	default:
		return nil, fmt.Errorf("create sequence %s: %w", key, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
