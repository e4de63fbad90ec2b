package query

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/models"
	"github.com/andrew/topic-rag/pkg/synth"
)

// Status reports how much of the query chain completed.
type Status string

const (
	// StatusSuccess means every stage the mode called for ran cleanly.
	StatusSuccess Status = "success"
	// StatusPartial means an answer was produced but a stage degraded,
	// typically retrieval, so the answer may lack grounding.
	StatusPartial Status = "partial"
	// StatusFailed means no answer could be produced.
	StatusFailed Status = "failed"
)

// Result carries the outcome of one orchestrated query. Degraded lists, in
// stage order, what went wrong on the way to a partial or failed status.
type Result struct {
	Question string                  `json:"message"`
	Topic    string                  `json:"index"`
	Chunks   []models.RetrievedChunk `json:"response,omitempty"`
	Answer   *synth.Result           `json:"answer,omitempty"`
	Status   Status                  `json:"status"`
	Degraded []string                `json:"degraded,omitempty"`
}

// ClassifierStage assigns a topic to a question.
type ClassifierStage interface {
	Classify(ctx context.Context, question string) (string, error)
}

// RetrieverStage fetches context chunks for a question from a topic's index.
type RetrieverStage interface {
	Retrieve(ctx context.Context, question, topic string) ([]models.RetrievedChunk, error)
}

// SynthesizerStage produces the final answer from a question and its context.
type SynthesizerStage interface {
	Synthesize(ctx context.Context, question string, chunks []models.RetrievedChunk) (synth.Result, error)
}

// Orchestrator runs the classify, retrieve, synthesize chain. Classification
// is load-bearing: if it fails the query fails. The later stages degrade
// instead, each failure logged and recorded on the result, so a broken index
// or model still yields the best answer the remaining stages can give.
type Orchestrator struct {
	classifier  ClassifierStage
	retriever   RetrieverStage
	synthesizer SynthesizerStage
	logger      *logrus.Logger
}

func NewOrchestrator(classifier ClassifierStage, retriever RetrieverStage, synthesizer SynthesizerStage, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{
		classifier:  classifier,
		retriever:   retriever,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Answer runs the chain for one question. In classify-only mode it stops
// after classification. The returned error is non-nil only when
// classification itself fails; every later failure is reported through the
// result's status and degraded reasons.
func (o *Orchestrator) Answer(ctx context.Context, question string, mode models.Mode) (Result, error) {
	topic, err := o.classifier.Classify(ctx, question)
	if err != nil {
		return Result{Question: question, Status: StatusFailed}, fmt.Errorf("classification: %w", err)
	}

	result := Result{Question: question, Topic: topic, Status: StatusSuccess}
	if mode != models.ModeInclusive {
		return result, nil
	}

	chunks, err := o.retriever.Retrieve(ctx, question, topic)
	if err != nil {
		o.logger.WithError(err).WithField("topic", topic).Error("retrieval failed, answering without context")
		result.Status = StatusPartial
		result.Degraded = append(result.Degraded, fmt.Sprintf("retrieve: %v", err))
	}
	result.Chunks = chunks

	answer, err := o.synthesizer.Synthesize(ctx, question, chunks)
	if err != nil {
		o.logger.WithError(err).WithField("topic", topic).Error("synthesis failed")
		result.Status = StatusFailed
		result.Degraded = append(result.Degraded, fmt.Sprintf("synthesize: %v", err))
		return result, nil
	}
	result.Answer = &answer
	return result, nil
}
