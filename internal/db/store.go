package db

import (
	"context"
	"errors"

	"github.com/mauv0809/etf-flows/internal/models"
)

// ErrNotFound is returned when no flow exists for a key.
var ErrNotFound = errors.New("flow not found")

// Store persists day flows keyed by (etf, natural key). UpsertFlow must be a
// single atomic create-or-update per key.
type Store interface {
	UpsertFlow(ctx context.Context, flow models.StoredFlow) (created bool, err error)
	FindFlow(ctx context.Context, etf, key string) (models.StoredFlow, error)
	ListFlows(ctx context.Context, etf string) ([]models.StoredFlow, error)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
