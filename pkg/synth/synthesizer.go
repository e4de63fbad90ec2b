package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/llm"
	"github.com/andrew/topic-rag/pkg/models"
)

// Diagnostic error labels reported when the configured response prompt is
// missing its grounding placeholders or document markers.
const (
	ErrLabelNoContext  = "prompt does not contain context"
	ErrLabelNotOptimal = "prompt not optimal"
)

// Result is the synthesizer's answer. Context and the diagnostic fields are
// only populated when the configured prompt template is defective; a healthy
// template yields a bare Result.
type Result struct {
	Result           string `json:"result"`
	Context          string `json:"context,omitempty"`
	ErrorExplication string `json:"error_explication,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Synthesizer turns a question plus retrieved chunks into a grounded answer
// through a single language model completion.
type Synthesizer struct {
	client   llm.Client
	settings *config.Settings
	logger   *logrus.Logger
}

func NewSynthesizer(client llm.Client, settings *config.Settings, logger *logrus.Logger) *Synthesizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Synthesizer{client: client, settings: settings, logger: logger}
}

// Synthesize formats the response prompt with the question and the document
// context, runs one completion, and attaches template diagnostics. The model
// is always called, even for a defective template; the diagnostics ride along
// with whatever it produced.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []models.RetrievedChunk) (Result, error) {
	docs := wrapChunks(chunks)
	template := s.settings.ResponsePrompt
	prompt := strings.NewReplacer("{question}", question, "{documents}", docs).Replace(template)

	answer, err := s.client.Complete(ctx, prompt, llm.ModelConfig{
		Temperature: s.settings.Temperature,
		MaxTokens:   s.settings.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("synthesize answer: %w", err)
	}

	if !strings.Contains(template, "{documents}") && !strings.Contains(template, "{question}") {
		s.logger.Warn("response prompt has no question or documents placeholder")
		return Result{
			Result:           answer,
			Context:          docs,
			ErrorExplication: "The prompt template never receives the retrieved documents, so the model answered from its training data alone and may not be accurate.",
			Error:            ErrLabelNoContext,
		}, nil
	}
	if !strings.Contains(template, "<document>") && !strings.Contains(template, "<documents>") {
		s.logger.Warn("response prompt has no document markers")
		return Result{
			Result:           answer,
			Context:          docs,
			ErrorExplication: "The prompt template does not mark where the retrieved documents begin and end. Wrapping them in <document> tags helps the model separate context from instructions.",
			Error:            ErrLabelNotOptimal,
		}, nil
	}
	return Result{Result: answer}, nil
}

// wrapChunks joins the retrieved chunks into the document block the prompt
// template embeds, each chunk inside its own marker pair.
func wrapChunks(chunks []models.RetrievedChunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "\n<document>\n%s\n</document>", chunk.PageContent)
	}
	return b.String()
}
