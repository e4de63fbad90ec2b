// Package embedding turns chunk text into fixed-dimension vectors.
package embedding

import "context"

// Embedder converts a batch of texts into vectors, same order, same length.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
