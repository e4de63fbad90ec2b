package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/andrew/topic-rag/pkg/errs"
	"github.com/andrew/topic-rag/pkg/models"
)

// MemoryStore is an in-process Store using brute-force cosine similarity.
// It backs tests and local development; durability is out of its scope.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimension int
	entries   map[string]models.IndexEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &memoryCollection{
			dimension: dimension,
			entries:   make(map[string]models.IndexEntry),
		}
	}
	return nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("collection %q: %w", name, errs.ErrNotFound)
	}
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, entries []models.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q: %w", collection, errs.ErrNotFound)
	}
	for _, entry := range entries {
		if len(entry.Vector) != col.dimension {
			return fmt.Errorf("vector dimension mismatch: want %d, got %d", col.dimension, len(entry.Vector))
		}
		col.entries[entry.ID] = entry
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, vector []float32, limit int) ([]models.ScoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collection, errs.ErrNotFound)
	}

	scored := make([]models.ScoredEntry, 0, len(col.entries))
	for _, entry := range col.entries {
		scored = append(scored, models.ScoredEntry{
			Entry: entry,
			Score: cosine(entry.Vector, vector),
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if limit > 0 && limit < len(scored) {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *MemoryStore) FindByURL(_ context.Context, collection, url string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collection, errs.ErrNotFound)
	}

	var ids []string
	for id, entry := range col.entries {
		if entry.URL == url {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) DeletePoints(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q: %w", collection, errs.ErrNotFound)
	}
	for _, id := range ids {
		delete(col.entries, id)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Count returns the number of entries in a collection, for tests and stats.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return 0
	}
	return len(col.entries)
}

// HasCollection reports whether a collection exists.
func (s *MemoryStore) HasCollection(collection string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
