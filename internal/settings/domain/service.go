package domain

import (
	"context"
	"errors"
)

type Repository interface {
	// Get returns (nil, nil) when the document has never been saved.
	Get(ctx context.Context, id string) (*Document, error)
	// Save inserts or replaces the document.
	Save(ctx context.Context, doc *Document) error
}

// Service resolves settings for the invoice engine.
type Service interface {
	Get(ctx context.Context) (Settings, error)
	Overrides(ctx context.Context) (Overrides, error)
	SaveOverrides(ctx context.Context, overrides Overrides, actorID string) (Settings, error)
}

var ErrInvalidSettings = errors.New("invalid_settings")
