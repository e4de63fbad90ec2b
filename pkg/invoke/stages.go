package invoke

import (
	"context"

	"github.com/andrew/topic-rag/pkg/models"
	"github.com/andrew/topic-rag/pkg/synth"
)

// RemoteRetriever satisfies the orchestrator's retriever stage by calling a
// separately deployed retrieval function over HTTP.
type RemoteRetriever struct {
	invoker *Invoker
	url     string
}

func NewRemoteRetriever(invoker *Invoker, url string) *RemoteRetriever {
	return &RemoteRetriever{invoker: invoker, url: url}
}

type retrieveRequest struct {
	Message string `json:"message"`
	Index   string `json:"index"`
}

type retrieveReply struct {
	Response []models.RetrievedChunk `json:"response"`
}

func (r *RemoteRetriever) Retrieve(ctx context.Context, question, topic string) ([]models.RetrievedChunk, error) {
	var reply retrieveReply
	if err := r.invoker.Call(ctx, r.url, retrieveRequest{Message: question, Index: topic}, &reply); err != nil {
		return nil, err
	}
	return reply.Response, nil
}

// RemoteSynthesizer satisfies the orchestrator's synthesizer stage by calling
// a separately deployed response function over HTTP.
type RemoteSynthesizer struct {
	invoker *Invoker
	url     string
}

func NewRemoteSynthesizer(invoker *Invoker, url string) *RemoteSynthesizer {
	return &RemoteSynthesizer{invoker: invoker, url: url}
}

type synthesizeRequest struct {
	Message  string                  `json:"message"`
	Response []models.RetrievedChunk `json:"response"`
}

func (s *RemoteSynthesizer) Synthesize(ctx context.Context, question string, chunks []models.RetrievedChunk) (synth.Result, error) {
	var result synth.Result
	if err := s.invoker.Call(ctx, s.url, synthesizeRequest{Message: question, Response: chunks}, &result); err != nil {
		return synth.Result{}, err
	}
	return result, nil
}
