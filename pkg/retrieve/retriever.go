package retrieve

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/embedding"
	"github.com/andrew/topic-rag/pkg/errs"
	"github.com/andrew/topic-rag/pkg/models"
	"github.com/andrew/topic-rag/pkg/vector"
)

// Retriever embeds a question and searches the matching topic collection for
// the most similar chunks. It is strictly a reader: a topic whose collection
// does not exist is reported as unavailable, never created on the fly.
type Retriever struct {
	store    vector.Store
	embedder embedding.Embedder
	limit    int
	logger   *logrus.Logger
}

func NewRetriever(store vector.Store, embedder embedding.Embedder, settings *config.Settings, logger *logrus.Logger) *Retriever {
	if logger == nil {
		logger = logrus.New()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		limit:    settings.DocumentsCount,
		logger:   logger,
	}
}

// Retrieve returns up to the configured number of chunks from the topic's
// collection, best match first.
func (r *Retriever) Retrieve(ctx context.Context, question, topic string) ([]models.RetrievedChunk, error) {
	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one input", errs.ErrUpstreamInvocation, len(vectors))
	}

	results, err := r.store.Search(ctx, topic, vectors[0], r.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %v", errs.ErrCollectionUnavailable, topic, err)
	}

	chunks := make([]models.RetrievedChunk, len(results))
	for i, result := range results {
		chunks[i] = models.RetrievedChunk{
			PageContent: result.Entry.Text,
			Metadata:    map[string]string{"url": result.Entry.URL},
		}
	}
	r.logger.WithFields(logrus.Fields{"topic": topic, "chunks": len(chunks)}).Debug("retrieved context")
	return chunks, nil
}
