// Package chunk splits document text into overlapping chunks and derives the
// deterministic content-hash ids used as vector index keys.
package chunk

import (
	"fmt"

	"github.com/google/uuid"
)

// separators are tried in order when looking for a natural cut point near the
// end of a chunk window. A hard cut is the fallback.
var separators = []string{"\n\n", "\n", " "}

// Splitter cuts text into chunks of at most Size characters, each overlapping
// its predecessor by Overlap characters.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter validates the chunking parameters and returns a Splitter.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split returns the ordered chunks covering text. Consecutive chunks overlap;
// there are never gaps between them. Cuts land on natural boundaries when one
// exists in the second half of the window. Size and overlap count runes, so a
// hard cut never lands inside a multi-byte character.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + s.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}

		cut := s.cutPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - s.overlap
		if next <= start {
			// Degenerate input; force progress rather than loop.
			next = start + 1
		}
		start = next
	}
}

// cutPoint finds where to end the chunk starting at start. It prefers the
// last separator in the second half of the window and falls back to a hard
// cut at the window end.
func (s *Splitter) cutPoint(runes []rune, start, end int) int {
	window := runes[start:end]
	min := len(window) / 2
	for _, sep := range separators {
		if idx := lastSeparator(window, sep); idx > min {
			return start + idx + len(sep)
		}
	}
	return end
}

// lastSeparator returns the index of the last occurrence of sep in window, or
// -1. Separators are ASCII, so one rune per byte.
func lastSeparator(window []rune, sep string) int {
	for i := len(window) - len(sep); i >= 0; i-- {
		match := true
		for j := 0; j < len(sep); j++ {
			if window[i+j] != rune(sep[j]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// EntryID returns the deterministic id for a chunk's text: a UUID derived
// from the MD5 content hash. Identical text always maps to the same id, which
// makes re-indexing idempotent.
func EntryID(text string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(text)).String()
}
