package llm

import "context"

// Client is the interface for single-shot language model completion. No
// streaming, no conversation state: one prompt in, one text out.
type Client interface {
	Complete(ctx context.Context, prompt string, config ModelConfig) (string, error)
}

// ModelConfig holds decoding parameters for one completion call
type ModelConfig struct {
	Temperature float32
	MaxTokens   int
}
