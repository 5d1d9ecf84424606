package domain

import (
	"context"
	"errors"
	"time"
)

type Repository interface {
	// Find returns (nil, nil) when the counter does not exist yet.
	Find(ctx context.Context, key string) (*Sequence, error)
	// Create inserts a fresh counter and returns ErrSequenceExists when
	// another caller created it first.
	Create(ctx context.Context, seq *Sequence) error
	// CompareAndSwap moves the counter from expected to next and reports
	// whether this caller won.
	CompareAndSwap(ctx context.Context, key string, expected, next int64, at time.Time) (bool, error)
}

type Service interface {
	Allocate(ctx context.Context, req Request) (Allocation, error)
	// Peek returns the number the next allocation would issue without
	// consuming it.
	Peek(ctx context.Context, req Request) (Allocation, error)
}

var (
	ErrSequenceCollision = errors.New("sequence_collision")
	ErrSequenceExists    = errors.New("sequence_exists")
	ErrInvalidRequest    = errors.New("invalid_sequence_request")
)
