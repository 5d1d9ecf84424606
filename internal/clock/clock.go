package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time so lifecycle timestamps and sequence scopes are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns a Clock backed by time.Now in UTC.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
