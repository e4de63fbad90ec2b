package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/andrew/topic-rag/pkg/errs"
)

// Parameter names as stored in the configuration store.
const (
	ParamClassificationPrompt = "classification_prompt"
	ParamResponsePrompt       = "response_prompt"
	ParamTopics               = "topics"
	ParamChunkSize            = "chunk_size"
	ParamChunkOverlap         = "chunk_overlap"
	ParamEmbedBatchSize       = "embed_batch_size"
	ParamDocumentsCount       = "relevant_documents_count"
	ParamTemperature          = "temperature"
	ParamMaxTokens            = "max_tokens_to_sample"
)

// Settings holds every runtime parameter of the pipeline. It is loaded once
// at startup and treated as immutable; a changed store value takes effect on
// the next instance.
type Settings struct {
	ClassificationPrompt string
	ResponsePrompt       string
	Topics               []string
	ChunkSize            int
	ChunkOverlap         int
	EmbedBatchSize       int
	DocumentsCount       int
	Temperature          float32
	MaxTokens            int
}

// LoadSettings reads and parses every required parameter from the store. Any
// absent parameter is fatal and surfaces as ErrConfigMissing.
func LoadSettings(ctx context.Context, store ParamStore) (*Settings, error) {
	get := func(name string) (string, error) {
		value, err := store.Get(ctx, name)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return "", fmt.Errorf("%w: %s", errs.ErrConfigMissing, name)
			}
			return "", err
		}
		return value, nil
	}
	getInt := func(name string) (int, error) {
		raw, err := get(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return 0, fmt.Errorf("parameter %q is not an integer: %w", name, err)
		}
		return v, nil
	}

	s := &Settings{}
	var err error
	if s.ClassificationPrompt, err = get(ParamClassificationPrompt); err != nil {
		return nil, err
	}
	if s.ResponsePrompt, err = get(ParamResponsePrompt); err != nil {
		return nil, err
	}
	rawTopics, err := get(ParamTopics)
	if err != nil {
		return nil, err
	}
	s.Topics = ParseTopics(rawTopics)
	if s.ChunkSize, err = getInt(ParamChunkSize); err != nil {
		return nil, err
	}
	if s.ChunkOverlap, err = getInt(ParamChunkOverlap); err != nil {
		return nil, err
	}
	if s.EmbedBatchSize, err = getInt(ParamEmbedBatchSize); err != nil {
		return nil, err
	}
	if s.DocumentsCount, err = getInt(ParamDocumentsCount); err != nil {
		return nil, err
	}
	rawTemp, err := get(ParamTemperature)
	if err != nil {
		return nil, err
	}
	temp, err := strconv.ParseFloat(strings.TrimSpace(rawTemp), 32)
	if err != nil {
		return nil, fmt.Errorf("parameter %q is not a number: %w", ParamTemperature, err)
	}
	s.Temperature = float32(temp)
	if s.MaxTokens, err = getInt(ParamMaxTokens); err != nil {
		return nil, err
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", s.ChunkOverlap)
	}
	if s.EmbedBatchSize <= 0 {
		return fmt.Errorf("embed_batch_size must be positive, got %d", s.EmbedBatchSize)
	}
	if s.DocumentsCount <= 0 {
		return fmt.Errorf("relevant_documents_count must be positive, got %d", s.DocumentsCount)
	}
	if len(s.Topics) == 0 {
		return fmt.Errorf("topics list is empty")
	}
	return nil
}

// ParseTopics parses the stored taxonomy value, which looks like
// "[billing, security, product]": brackets stripped, comma-separated.
func ParseTopics(raw string) []string {
	trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "[]"))
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
