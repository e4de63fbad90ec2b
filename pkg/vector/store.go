package vector

import (
	"context"

	"github.com/andrew/topic-rag/pkg/models"
)

// Store defines the interface for per-topic vector collections. Collection
// creation is owned by the indexing pipeline; readers never create.
type Store interface {
	// EnsureCollection creates the named collection if it does not exist.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// DeleteCollection removes the whole collection. A missing collection
	// reports errs.ErrNotFound.
	DeleteCollection(ctx context.Context, name string) error

	// Upsert inserts or updates entries keyed by their content-hash ids.
	Upsert(ctx context.Context, collection string, entries []models.IndexEntry) error

	// Search finds the limit most similar entries to the query vector.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]models.ScoredEntry, error)

	// FindByURL returns the ids of all entries whose provenance URL matches.
	FindByURL(ctx context.Context, collection, url string) ([]string, error)

	// DeletePoints removes the entries with the given ids.
	DeletePoints(ctx context.Context, collection string, ids []string) error

	// Close releases resources used by the vector store
	Close() error
}
