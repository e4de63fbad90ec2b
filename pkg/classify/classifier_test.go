package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/errs"
	"github.com/andrew/topic-rag/pkg/llm"
)

type scriptedClient struct {
	prompt string
	config llm.ModelConfig
	answer string
	err    error
}

func (s *scriptedClient) Complete(_ context.Context, prompt string, config llm.ModelConfig) (string, error) {
	s.prompt = prompt
	s.config = config
	return s.answer, s.err
}

func classifierSettings() *config.Settings {
	return &config.Settings{
		ClassificationPrompt: "Pick a topic for {question} from {topics}. Answer as {string}.",
		Topics:               []string{"billing", "security"},
		Temperature:          0.2,
		MaxTokens:            64,
	}
}

func TestClassifyBuildsPromptAndParsesAnswer(t *testing.T) {
	client := &scriptedClient{answer: `{"topic": "billing"}`}
	c := NewClassifier(client, classifierSettings(), nil)

	topic, err := c.Classify(context.Background(), "why was I charged twice?")
	require.NoError(t, err)
	assert.Equal(t, "billing", topic)

	assert.Equal(t,
		`Pick a topic for why was I charged twice? from billing, security. Answer as {"topic": "topic name"}.`,
		client.prompt)
	assert.Equal(t, float32(0.2), client.config.Temperature)
	assert.Equal(t, 64, client.config.MaxTokens)
}

func TestClassifyAcceptsUnknownTopic(t *testing.T) {
	client := &scriptedClient{answer: `{"topic": "kubernetes"}`}
	c := NewClassifier(client, classifierSettings(), nil)

	topic, err := c.Classify(context.Background(), "how do I scale my pods?")
	require.NoError(t, err)
	assert.Equal(t, "kubernetes", topic, "answers outside the taxonomy pass through")
}

func TestClassifyMalformedOutput(t *testing.T) {
	cases := map[string]string{
		"prose":         "The topic is billing.",
		"wrong key":     `{"category": "billing"}`,
		"empty topic":   `{"topic": ""}`,
		"missing topic": `{}`,
	}
	for name, answer := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewClassifier(&scriptedClient{answer: answer}, classifierSettings(), nil)
			_, err := c.Classify(context.Background(), "question")
			require.ErrorIs(t, err, errs.ErrMalformedModelOutput)
		})
	}
}

func TestClassifyTrimsWhitespace(t *testing.T) {
	c := NewClassifier(&scriptedClient{answer: "\n  {\"topic\": \"security\"}\n"}, classifierSettings(), nil)
	topic, err := c.Classify(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "security", topic)
}

func TestClassifyPropagatesModelError(t *testing.T) {
	wrapped := errors.New("connection refused")
	c := NewClassifier(&scriptedClient{err: wrapped}, classifierSettings(), nil)

	_, err := c.Classify(context.Background(), "question")
	require.ErrorIs(t, err, wrapped)
	assert.NotErrorIs(t, err, errs.ErrMalformedModelOutput)
}
