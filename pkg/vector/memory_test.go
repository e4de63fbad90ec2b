package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/topic-rag/pkg/errs"
	"github.com/andrew/topic-rag/pkg/models"
)

func TestMemoryStoreUpsertDeduplicatesByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "billing", 2))

	entry := models.IndexEntry{ID: "e1", Vector: []float32{1, 0}, Text: "hello", URL: "s3://docs/billing/a.md"}
	require.NoError(t, s.Upsert(ctx, "billing", []models.IndexEntry{entry}))
	require.NoError(t, s.Upsert(ctx, "billing", []models.IndexEntry{entry}))

	assert.Equal(t, 1, s.Count("billing"), "same id upserted twice stays one entry")
}

func TestMemoryStoreSearchRanksAndLimits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "billing", 2))

	entries := []models.IndexEntry{
		{ID: "a", Vector: []float32{1, 0}, Text: "aligned"},
		{ID: "b", Vector: []float32{0, 1}, Text: "orthogonal"},
		{ID: "c", Vector: []float32{0.9, 0.1}, Text: "close"},
	}
	require.NoError(t, s.Upsert(ctx, "billing", entries))

	results, err := s.Search(ctx, "billing", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Entry.ID)
	assert.Equal(t, "c", results[1].Entry.ID)
}

func TestMemoryStoreMissingCollection(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Search(ctx, "nope", []float32{1}, 3)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.FindByURL(ctx, "nope", "s3://x/y")
	require.ErrorIs(t, err, errs.ErrNotFound)

	err = s.DeleteCollection(ctx, "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMemoryStoreFindAndDeleteByURL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "billing", 1))

	url := "s3://docs/billing/a.md"
	other := "s3://docs/billing/b.md"
	require.NoError(t, s.Upsert(ctx, "billing", []models.IndexEntry{
		{ID: "a1", Vector: []float32{1}, URL: url},
		{ID: "a2", Vector: []float32{1}, URL: url},
		{ID: "b1", Vector: []float32{1}, URL: other},
	}))

	ids, err := s.FindByURL(ctx, "billing", url)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)

	require.NoError(t, s.DeletePoints(ctx, "billing", ids))
	assert.Equal(t, 1, s.Count("billing"), "other document's entries untouched")

	remaining, err := s.FindByURL(ctx, "billing", other)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, remaining)
}

func TestMemoryStoreDeleteCollection(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "security", 1))
	require.NoError(t, s.Upsert(ctx, "security", []models.IndexEntry{{ID: "x", Vector: []float32{1}}}))

	require.NoError(t, s.DeleteCollection(ctx, "security"))
	assert.False(t, s.HasCollection("security"))
}
