package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/errs"
	"github.com/andrew/topic-rag/pkg/llm"
)

// schemaHint is handed to the model verbatim as the shape its answer must take.
const schemaHint = `{"topic": "topic name"}`

// Classifier maps a free-form question onto one of the configured topics by
// asking the language model to pick a name from the taxonomy.
type Classifier struct {
	client   llm.Client
	settings *config.Settings
	logger   *logrus.Logger
}

func NewClassifier(client llm.Client, settings *config.Settings, logger *logrus.Logger) *Classifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &Classifier{client: client, settings: settings, logger: logger}
}

type topicAnswer struct {
	Topic *string `json:"topic"`
}

// Classify returns the topic the model assigns to question. The answer is not
// checked against the taxonomy; a topic with no index surfaces later as a
// retrieval failure, which keeps new topics usable the moment documents for
// them land.
func (c *Classifier) Classify(ctx context.Context, question string) (string, error) {
	prompt := buildPrompt(c.settings.ClassificationPrompt, question, c.settings.Topics)

	raw, err := c.client.Complete(ctx, prompt, llm.ModelConfig{
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("classify question: %w", err)
	}

	topic, err := parseAnswer(raw)
	if err != nil {
		c.logger.WithField("answer", raw).Warn("classifier returned unparsable output")
		return "", err
	}
	c.logger.WithField("topic", topic).Debug("question classified")
	return topic, nil
}

func buildPrompt(template, question string, topics []string) string {
	r := strings.NewReplacer(
		"{question}", question,
		"{topics}", strings.Join(topics, ", "),
		"{string}", schemaHint,
	)
	return r.Replace(template)
}

// parseAnswer expects the model output to be exactly the JSON object the
// prompt asked for. Anything else, including prose around the object, counts
// as malformed.
func parseAnswer(raw string) (string, error) {
	var answer topicAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &answer); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrMalformedModelOutput, err)
	}
	if answer.Topic == nil || *answer.Topic == "" {
		return "", fmt.Errorf("%w: missing topic field", errs.ErrMalformedModelOutput)
	}
	return *answer.Topic, nil
}
