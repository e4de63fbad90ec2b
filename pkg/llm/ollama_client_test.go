package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/topic-rag/pkg/errs"
)

func TestOllamaClientComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		// Stream of JSON objects, one per line, like the Ollama API.
		fmt.Fprintln(w, `{"response": "Hello, ", "done": false}`)
		fmt.Fprintln(w, `{"response": "world.", "done": true}`)
	}))
	defer ts.Close()

	client := NewOllamaClient("test-model", ts.URL, 5*time.Second)
	text, err := client.Complete(context.Background(), "say hello", ModelConfig{Temperature: 0.1, MaxTokens: 16})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world.", text)
}

func TestOllamaClientCompleteServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewOllamaClient("test-model", ts.URL, 5*time.Second)
	_, err := client.Complete(context.Background(), "hi", ModelConfig{})
	require.ErrorIs(t, err, errs.ErrUpstreamInvocation)
}
