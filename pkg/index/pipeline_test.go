package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/models"
	"github.com/andrew/topic-rag/pkg/vector"
)

// fakeEmbedder maps text onto a crude count-based vector so that similarity
// is deterministic in tests.
type fakeEmbedder struct {
	calls      int
	batchSizes []int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{
			float32(strings.Count(text, "a")),
			float32(strings.Count(text, "needle")) * 1000,
			1,
		}
	}
	return vectors, nil
}

// fakeFetcher serves document bodies from a map.
type fakeFetcher struct {
	docs map[string]string
}

func (f *fakeFetcher) FetchDocument(_ context.Context, bucket, key string) (string, error) {
	body, ok := f.docs[bucket+"/"+key]
	if !ok {
		return "", fmt.Errorf("no such object %s/%s", bucket, key)
	}
	return body, nil
}

func testSettings() *config.Settings {
	return &config.Settings{
		ClassificationPrompt: "unused",
		ResponsePrompt:       "unused",
		Topics:               []string{"billing", "security"},
		ChunkSize:            1000,
		ChunkOverlap:         100,
		EmbedBatchSize:       2,
		DocumentsCount:       3,
		MaxTokens:            256,
	}
}

func newTestPipeline(t *testing.T, docs map[string]string) (*Pipeline, *vector.MemoryStore, *fakeEmbedder) {
	t.Helper()
	store := vector.NewMemoryStore()
	embedder := &fakeEmbedder{}
	logger := logrus.New()
	logger.SetOutput(discard{})

	p, err := NewPipeline(store, embedder, &fakeFetcher{docs: docs}, testSettings(), 3, logger)
	require.NoError(t, err)
	return p, store, embedder
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// cyclingBody builds n characters with no split separators and no two
// equal windows, so every chunk hashes to a distinct id.
func cyclingBody(n int) string {
	body := make([]byte, n)
	for i := range body {
		body[i] = 'a' + byte(i%26)
	}
	return string(body)
}

func created(key string) models.StorageEvent {
	return models.StorageEvent{Kind: models.EventCreated, Bucket: "docs", Key: key}
}

func removed(key string) models.StorageEvent {
	return models.StorageEvent{Kind: models.EventRemoved, Bucket: "docs", Key: key}
}

func TestProcessBatchIndexesDocument(t *testing.T) {
	p, store, embedder := newTestPipeline(t, map[string]string{"docs/billing/guide.md": cyclingBody(2500)})

	outcomes := p.ProcessBatch(context.Background(), []models.StorageEvent{created("billing/guide.md")})
	require.Len(t, outcomes, 1)
	assert.Empty(t, outcomes[0].Error)
	assert.Equal(t, "billing", outcomes[0].Topic)
	assert.Equal(t, 3, outcomes[0].Indexed, "2500 chars at size 1000 overlap 100 make 3 chunks")
	assert.Equal(t, 3, store.Count("billing"))
	assert.Equal(t, []int{2, 1}, embedder.batchSizes, "embedding batched at the configured batch size")
}

func TestProcessBatchIdempotentReindex(t *testing.T) {
	p, store, _ := newTestPipeline(t, map[string]string{"docs/billing/guide.md": cyclingBody(2500)})
	ctx := context.Background()

	p.ProcessBatch(ctx, []models.StorageEvent{created("billing/guide.md")})
	first := store.Count("billing")
	p.ProcessBatch(ctx, []models.StorageEvent{created("billing/guide.md")})

	assert.Equal(t, first, store.Count("billing"), "unchanged content re-indexes to the same ids")
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	p, store, _ := newTestPipeline(t, map[string]string{"docs/billing/good.md": strings.Repeat("a", 50)})

	outcomes := p.ProcessBatch(context.Background(), []models.StorageEvent{
		created("billing/missing.md"),
		created("billing/good.md"),
	})
	require.Len(t, outcomes, 2)
	assert.Equal(t, "general_error", outcomes[0].Error)
	assert.Empty(t, outcomes[1].Error, "one failing document does not abort the batch")
	assert.Equal(t, 1, store.Count("billing"))
}

func TestProcessBatchRemovesSingleDocument(t *testing.T) {
	docs := map[string]string{
		"docs/billing/a.md": strings.Repeat("a", 50),
		"docs/billing/b.md": strings.Repeat("ab", 30),
	}
	p, store, _ := newTestPipeline(t, docs)
	ctx := context.Background()

	p.ProcessBatch(ctx, []models.StorageEvent{created("billing/a.md"), created("billing/b.md")})
	require.Equal(t, 2, store.Count("billing"))

	outcomes := p.ProcessBatch(ctx, []models.StorageEvent{removed("billing/a.md")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, ActionDeleteDocument, outcomes[0].Action)
	assert.Equal(t, "billing", outcomes[0].Topic)
	assert.Equal(t, "s3://docs/billing/a.md", outcomes[0].URL)
	assert.Equal(t, 1, outcomes[0].Count)
	assert.Equal(t, 1, store.Count("billing"), "the other document's entries survive")
}

func TestProcessBatchRemovesWholeTopic(t *testing.T) {
	p, store, _ := newTestPipeline(t, map[string]string{"docs/security/a.md": "alpha beta"})
	ctx := context.Background()

	p.ProcessBatch(ctx, []models.StorageEvent{created("security/a.md")})
	require.True(t, store.HasCollection("security"))

	outcomes := p.ProcessBatch(ctx, []models.StorageEvent{removed("security/")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, ActionDeleteIndex, outcomes[0].Action)
	assert.Equal(t, "security", outcomes[0].Topic)
	assert.False(t, store.HasCollection("security"))
}

func TestProcessBatchRemoveMissingTopic(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)

	outcomes := p.ProcessBatch(context.Background(), []models.StorageEvent{removed("ghost/")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, "index_not_found", outcomes[0].Error)
	assert.Equal(t, "ghost", outcomes[0].Topic)

	outcomes = p.ProcessBatch(context.Background(), []models.StorageEvent{removed("ghost/doc.md")})
	require.Len(t, outcomes, 1)
	assert.Equal(t, "index_not_found", outcomes[0].Error)
}

func TestProcessBatchMixedEvents(t *testing.T) {
	p, store, _ := newTestPipeline(t, map[string]string{"docs/billing/a.md": "hello a"})
	ctx := context.Background()

	p.ProcessBatch(ctx, []models.StorageEvent{created("billing/a.md")})
	outcomes := p.ProcessBatch(ctx, []models.StorageEvent{
		removed("billing/a.md"),
		created("billing/a.md"),
	})

	// Adds run before removes, matching the event partition order, so the
	// remove wins here.
	require.Len(t, outcomes, 2)
	assert.Equal(t, 0, store.Count("billing"))
}

func TestNeedleChunkRanksFirst(t *testing.T) {
	// 2500 chars, needle placed so it lands only in the middle chunk.
	body := []byte(strings.Repeat("a", 2500))
	copy(body[1200:], "needle")
	p, store, _ := newTestPipeline(t, map[string]string{"docs/billing/guide.md": string(body)})
	ctx := context.Background()

	outcomes := p.ProcessBatch(ctx, []models.StorageEvent{created("billing/guide.md")})
	require.Len(t, outcomes, 1)
	require.Equal(t, 3, outcomes[0].Indexed)

	query := []float32{0, 1000, 1}
	results, err := store.Search(ctx, "billing", query, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Contains(t, results[0].Entry.Text, "needle", "the chunk containing the needle ranks first")
}

func TestNewPipelineValidation(t *testing.T) {
	settings := testSettings()
	settings.ChunkOverlap = settings.ChunkSize
	_, err := NewPipeline(vector.NewMemoryStore(), &fakeEmbedder{}, &fakeFetcher{}, settings, 3, nil)
	require.Error(t, err)

	_, err = NewPipeline(vector.NewMemoryStore(), &fakeEmbedder{}, &fakeFetcher{}, testSettings(), 0, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))

	settings = testSettings()
	settings.EmbedBatchSize = 0
	_, err = NewPipeline(vector.NewMemoryStore(), &fakeEmbedder{}, &fakeFetcher{}, settings, 3, nil)
	require.Error(t, err, "a zero batch size would stall the embedding loop")
}
