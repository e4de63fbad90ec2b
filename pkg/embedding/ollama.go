package embedding

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/andrew/topic-rag/pkg/errs"
)

const embedMaxRetries = 3

// OllamaEmbedder produces embeddings through a local Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder creates an embedder against the given Ollama base URL.
func NewOllamaEmbedder(rawURL, model string, timeout time.Duration) (*OllamaEmbedder, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL %q: %w", rawURL, err)
	}

	httpClient := &http.Client{Timeout: timeout}
	return &OllamaEmbedder{
		client: api.NewClient(u, httpClient),
		model:  model,
	}, nil
}

// Embed returns one vector per input text, preserving order. Each request is
// retried with exponential backoff before the batch is failed.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		embedding, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamInvocation, err)
		}
		vectors = append(vectors, embedding)
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	req := &api.EmbeddingRequest{Model: e.model, Prompt: text}

	var lastErr error
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		resp, err := e.client.Embeddings(ctx, req)
		if err == nil {
			vector := make([]float32, len(resp.Embedding))
			for i, v := range resp.Embedding {
				vector[i] = float32(v)
			}
			return vector, nil
		}

		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(math.Pow(2, float64(attempt))) * time.Second):
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %v", embedMaxRetries, lastErr)
}
