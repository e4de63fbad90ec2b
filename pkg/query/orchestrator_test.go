package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/topic-rag/pkg/models"
	"github.com/andrew/topic-rag/pkg/synth"
)

type stubClassifier struct {
	topic string
	err   error
}

func (s stubClassifier) Classify(context.Context, string) (string, error) {
	return s.topic, s.err
}

type stubRetriever struct {
	chunks []models.RetrievedChunk
	err    error
	calls  int
}

func (s *stubRetriever) Retrieve(_ context.Context, _, topic string) ([]models.RetrievedChunk, error) {
	s.calls++
	return s.chunks, s.err
}

type stubSynthesizer struct {
	result synth.Result
	err    error
	got    []models.RetrievedChunk
	calls  int
}

func (s *stubSynthesizer) Synthesize(_ context.Context, _ string, chunks []models.RetrievedChunk) (synth.Result, error) {
	s.calls++
	s.got = chunks
	return s.result, s.err
}

func someChunks() []models.RetrievedChunk {
	return []models.RetrievedChunk{{PageContent: "invoices are sent monthly", Metadata: map[string]string{"url": "s3://docs/billing/a.md"}}}
}

func TestAnswerClassifyOnly(t *testing.T) {
	retriever := &stubRetriever{chunks: someChunks()}
	synthesizer := &stubSynthesizer{}
	o := NewOrchestrator(stubClassifier{topic: "billing"}, retriever, synthesizer, nil)

	result, err := o.Answer(context.Background(), "why was I charged twice?", models.ModeClassifyOnly)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "billing", result.Topic)
	assert.Equal(t, 0, retriever.calls, "classify-only mode never touches the index")
	assert.Equal(t, 0, synthesizer.calls)
}

func TestAnswerInclusive(t *testing.T) {
	synthesizer := &stubSynthesizer{result: synth.Result{Result: "Twice-charged invoices are refunded."}}
	o := NewOrchestrator(stubClassifier{topic: "billing"}, &stubRetriever{chunks: someChunks()}, synthesizer, nil)

	result, err := o.Answer(context.Background(), "why was I charged twice?", models.ModeInclusive)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "billing", result.Topic)
	assert.Equal(t, someChunks(), result.Chunks)
	require.NotNil(t, result.Answer)
	assert.Equal(t, "Twice-charged invoices are refunded.", result.Answer.Result)
	assert.Empty(t, result.Degraded)
}

func TestAnswerClassificationFailureIsTerminal(t *testing.T) {
	wrapped := errors.New("model unavailable")
	retriever := &stubRetriever{}
	o := NewOrchestrator(stubClassifier{err: wrapped}, retriever, &stubSynthesizer{}, nil)

	result, err := o.Answer(context.Background(), "question", models.ModeInclusive)
	require.ErrorIs(t, err, wrapped)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 0, retriever.calls)
}

func TestAnswerRetrievalFailureDegrades(t *testing.T) {
	synthesizer := &stubSynthesizer{result: synth.Result{Result: "best effort"}}
	o := NewOrchestrator(stubClassifier{topic: "billing"}, &stubRetriever{err: errors.New("collection unavailable")}, synthesizer, nil)

	result, err := o.Answer(context.Background(), "question", models.ModeInclusive)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, result.Status)
	require.NotNil(t, result.Answer)
	assert.Equal(t, "best effort", result.Answer.Result)
	assert.Empty(t, synthesizer.got, "synthesis proceeds without context")
	require.Len(t, result.Degraded, 1)
	assert.Contains(t, result.Degraded[0], "retrieve:")
}

func TestAnswerSynthesisFailure(t *testing.T) {
	o := NewOrchestrator(stubClassifier{topic: "billing"}, &stubRetriever{chunks: someChunks()}, &stubSynthesizer{err: errors.New("timeout")}, nil)

	result, err := o.Answer(context.Background(), "question", models.ModeInclusive)
	require.NoError(t, err, "post-classification failures surface through the status")
	assert.Equal(t, StatusFailed, result.Status)
	assert.Nil(t, result.Answer)
	require.Len(t, result.Degraded, 1)
	assert.Contains(t, result.Degraded[0], "synthesize:")
}

func TestAnswerBothLaterStagesFail(t *testing.T) {
	o := NewOrchestrator(stubClassifier{topic: "billing"}, &stubRetriever{err: errors.New("down")}, &stubSynthesizer{err: errors.New("down too")}, nil)

	result, err := o.Answer(context.Background(), "question", models.ModeInclusive)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Len(t, result.Degraded, 2)
}
