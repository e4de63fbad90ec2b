package models

import "fmt"

// Document represents one object in the corpus, identified by its storage
// location. Its topic is derived from the first path segment of the key.
type Document struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Topic  string `json:"topic"`
	Body   string `json:"body,omitempty"`
}

// URL returns the provenance URL stored alongside every indexed chunk.
func (d Document) URL() string {
	return fmt.Sprintf("s3://%s/%s", d.Bucket, d.Key)
}

// Chunk represents a bounded slice of a document's text, the atomic indexing unit
type Chunk struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

// IndexEntry is the unit stored in a topic's vector collection. The id is a
// deterministic content hash, so re-indexing unchanged text is a no-op.
type IndexEntry struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Text   string    `json:"text"`
	URL    string    `json:"url"`
}

// ScoredEntry represents an index entry that matched a similarity search
type ScoredEntry struct {
	Entry IndexEntry `json:"entry"`
	Score float32    `json:"score"`
}

// RetrievedChunk is the retriever's wire representation of a matched entry.
// The raw vector never appears in the metadata.
type RetrievedChunk struct {
	PageContent string            `json:"page_content"`
	Metadata    map[string]string `json:"metadata"`
}
