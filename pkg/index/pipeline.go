// Package index implements the document indexing pipeline: storage change
// events in, per-topic vector index mutations out.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/chunk"
	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/embedding"
	"github.com/andrew/topic-rag/pkg/errs"
	"github.com/andrew/topic-rag/pkg/models"
	"github.com/andrew/topic-rag/pkg/storage"
	"github.com/andrew/topic-rag/pkg/vector"
)

// Outcome error codes mirrored on the wire.
const (
	errIndexNotFound = "index_not_found"
	errGeneral       = "general_error"
)

// Outcome actions for the remove path.
const (
	ActionDeleteIndex    = "delete_index"
	ActionDeleteDocument = "delete_document"
)

// Outcome is the per-document result of processing one storage event. One
// failed document never aborts the rest of the batch.
type Outcome struct {
	Action  string `json:"action,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Bucket  string `json:"bucket,omitempty"`
	Key     string `json:"key,omitempty"`
	URL     string `json:"url,omitempty"`
	Indexed int    `json:"indexed,omitempty"`
	Count   int    `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Pipeline turns storage change events into vector index mutations.
type Pipeline struct {
	store     vector.Store
	embedder  embedding.Embedder
	fetcher   storage.Fetcher
	splitter  *chunk.Splitter
	batchSize int
	dimension int
	logger    *logrus.Logger
}

// NewPipeline builds a pipeline from runtime settings. The embedding batch
// size is its own setting, independent of the chunk size.
func NewPipeline(store vector.Store, embedder embedding.Embedder, fetcher storage.Fetcher, settings *config.Settings, dimension int, logger *logrus.Logger) (*Pipeline, error) {
	splitter, err := chunk.NewSplitter(settings.ChunkSize, settings.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if settings.EmbedBatchSize <= 0 {
		return nil, fmt.Errorf("embed batch size must be positive, got %d", settings.EmbedBatchSize)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Pipeline{
		store:     store,
		embedder:  embedder,
		fetcher:   fetcher,
		splitter:  splitter,
		batchSize: settings.EmbedBatchSize,
		dimension: dimension,
		logger:    logger,
	}, nil
}

// ProcessBatch partitions the events into add/update and remove groups and
// processes every document, collecting one outcome each.
func (p *Pipeline) ProcessBatch(ctx context.Context, events []models.StorageEvent) []Outcome {
	var adds, removes []models.StorageEvent
	for _, event := range events {
		switch event.Kind {
		case models.EventCreated:
			adds = append(adds, event)
		case models.EventRemoved:
			removes = append(removes, event)
		}
	}

	outcomes := make([]Outcome, 0, len(adds)+len(removes))
	for _, event := range adds {
		outcomes = append(outcomes, p.addDocument(ctx, event))
	}
	for _, event := range removes {
		outcomes = append(outcomes, p.removeDocument(ctx, event))
	}
	return outcomes
}

// addDocument indexes one created or overwritten object: ensure the topic's
// collection, fetch, chunk, embed in batches, upsert under content-hash ids.
func (p *Pipeline) addDocument(ctx context.Context, event models.StorageEvent) Outcome {
	topic := event.Topic()
	log := p.logger.WithFields(logrus.Fields{"topic": topic, "bucket": event.Bucket, "key": event.Key})

	if err := p.store.EnsureCollection(ctx, topic, p.dimension); err != nil {
		log.WithError(err).Error("failed to create index")
		return Outcome{
			Bucket:  event.Bucket,
			Key:     event.Key,
			Topic:   topic,
			Error:   errGeneral,
			Message: fmt.Sprintf("error creating index %s: %v", topic, err),
		}
	}

	body, err := p.fetcher.FetchDocument(ctx, event.Bucket, event.Key)
	if err != nil {
		log.WithError(err).Error("failed to fetch document")
		return Outcome{
			Bucket:  event.Bucket,
			Key:     event.Key,
			Topic:   topic,
			Error:   errGeneral,
			Message: fmt.Sprintf("error loading document: %v", err),
		}
	}

	texts := p.splitter.Split(body)
	log.WithField("chunks", len(texts)).Debug("document split")

	url := event.URL()
	indexed := 0
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := p.embedder.Embed(ctx, batch)
		if err != nil {
			log.WithError(err).Error("embedding failed")
			return Outcome{
				Bucket:  event.Bucket,
				Key:     event.Key,
				Topic:   topic,
				Error:   errGeneral,
				Message: fmt.Sprintf("error embedding document: %v", err),
			}
		}

		entries := make([]models.IndexEntry, 0, len(batch))
		for i, text := range batch {
			entries = append(entries, models.IndexEntry{
				ID:     chunk.EntryID(text),
				Vector: vectors[i],
				Text:   text,
				URL:    url,
			})
		}
		if err := p.store.Upsert(ctx, topic, entries); err != nil {
			log.WithError(err).Error("upsert failed")
			return Outcome{
				Bucket:  event.Bucket,
				Key:     event.Key,
				Topic:   topic,
				Error:   errGeneral,
				Message: fmt.Sprintf("error indexing document: %v", err),
			}
		}
		indexed += len(entries)
	}

	log.WithField("indexed", indexed).Info("document indexed")
	return Outcome{Bucket: event.Bucket, Key: event.Key, Topic: topic, Indexed: indexed}
}

// removeDocument handles an object removal. A trailing path separator on the
// key means the whole topic goes; otherwise only the entries whose
// provenance URL matches this document are deleted.
func (p *Pipeline) removeDocument(ctx context.Context, event models.StorageEvent) Outcome {
	topic := event.Topic()
	log := p.logger.WithFields(logrus.Fields{"topic": topic, "key": event.Key})

	if event.IsTopicDelete() {
		if err := p.store.DeleteCollection(ctx, topic); err != nil {
			return p.removeFailure(log, topic, err)
		}
		log.Info("index deleted")
		return Outcome{Action: ActionDeleteIndex, Topic: topic}
	}

	url := event.URL()
	ids, err := p.store.FindByURL(ctx, topic, url)
	if err != nil {
		return p.removeFailure(log, topic, err)
	}
	if err := p.store.DeletePoints(ctx, topic, ids); err != nil {
		return p.removeFailure(log, topic, err)
	}

	log.WithField("count", len(ids)).Info("document entries deleted")
	return Outcome{Action: ActionDeleteDocument, Topic: topic, URL: url, Count: len(ids)}
}

// removeFailure distinguishes a missing collection, reported as a structured
// not-found result, from every other failure. Neither is fatal to the batch.
func (p *Pipeline) removeFailure(log *logrus.Entry, topic string, err error) Outcome {
	if errors.Is(err, errs.ErrNotFound) {
		log.WithError(err).Warn("index not found")
		return Outcome{Error: errIndexNotFound, Topic: topic, Message: err.Error()}
	}
	log.WithError(err).Error("error removing document from index")
	return Outcome{Error: errGeneral, Topic: topic, Message: err.Error()}
}
