package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andrew/topic-rag/pkg/errs"
)

// OllamaClient is a client that uses the Ollama API to run completions
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	modelName  string
}

// ollamaRequest represents a request to the Ollama generate endpoint
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

// ollamaOptions represents parameter options for the model
type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"num_predict,omitempty"`
}

// ollamaResponse represents one streamed response line from the Ollama API
type ollamaResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Done     bool   `json:"done"`
}

// NewOllamaClient creates a new client for a local Ollama server
func NewOllamaClient(modelName, baseURL string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434/api"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &OllamaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		modelName:  modelName,
	}
}

// Complete sends a single prompt and returns the full generated text.
func (c *OllamaClient) Complete(ctx context.Context, prompt string, config ModelConfig) (string, error) {
	req := ollamaRequest{
		Model:  c.modelName,
		Prompt: prompt,
		Options: ollamaOptions{
			Temperature: config.Temperature,
			MaxTokens:   config.MaxTokens,
		},
	}

	text, err := c.sendGenerateRequest(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpstreamInvocation, err)
	}
	return text, nil
}

// sendGenerateRequest handles the generate endpoint and concatenates the
// streamed response lines into one completion.
func (c *OllamaClient) sendGenerateRequest(ctx context.Context, req ollamaRequest) (string, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, body)
	}

	// Ollama returns a stream of JSON objects, one per line
	var fullResponse strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}

		var chunkResponse ollamaResponse
		if err := json.Unmarshal([]byte(line), &chunkResponse); err != nil {
			return "", fmt.Errorf("failed to parse Ollama response chunk: %v", err)
		}

		fullResponse.WriteString(chunkResponse.Response)
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading response stream: %v", err)
	}

	return fullResponse.String(), nil
}
