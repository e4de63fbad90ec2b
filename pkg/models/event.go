package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// EventKind tags a storage change event as either an object creation
// (including overwrites) or an object removal.
type EventKind int

const (
	EventCreated EventKind = iota
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// StorageEvent is one decoded storage change record. Keys are stored
// unescaped; the raw wire form is URL-encoded.
type StorageEvent struct {
	Kind   EventKind `json:"kind"`
	Bucket string    `json:"bucket"`
	Key    string    `json:"key"`
}

// IsTopicDelete reports whether this removal targets an entire topic rather
// than a single document. A trailing path separator marks a topic-level key.
func (e StorageEvent) IsTopicDelete() bool {
	return strings.HasSuffix(e.Key, "/")
}

// Topic derives the topic name from the first path segment of the key,
// case-normalized.
func (e StorageEvent) Topic() string {
	segment, _, _ := strings.Cut(e.Key, "/")
	return strings.ToLower(segment)
}

// URL returns the provenance URL for the object behind this event.
func (e StorageEvent) URL() string {
	return fmt.Sprintf("s3://%s/%s", e.Bucket, e.Key)
}

// storageNotification mirrors the S3-compatible notification wire format
// emitted by MinIO bucket notifications and webhooks.
type storageNotification struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// DecodeStorageEvents parses an S3-style notification payload into tagged
// events. Records with event names outside the ObjectCreated/ObjectRemoved
// families are dropped. Object keys arrive URL-encoded and are unescaped here,
// once, at the boundary.
func DecodeStorageEvents(payload []byte) ([]StorageEvent, error) {
	var n storageNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to decode storage notification: %w", err)
	}

	events := make([]StorageEvent, 0, len(n.Records))
	for _, rec := range n.Records {
		kind, ok := ClassifyEventName(rec.EventName)
		if !ok {
			continue
		}

		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}

		events = append(events, StorageEvent{
			Kind:   kind,
			Bucket: rec.S3.Bucket.Name,
			Key:    key,
		})
	}

	return events, nil
}

// ClassifyEventName maps an S3-style event name onto an EventKind by its
// family prefix. Events outside the created/removed families report ok=false.
func ClassifyEventName(name string) (EventKind, bool) {
	trimmed := strings.TrimPrefix(name, "s3:")
	switch {
	case strings.HasPrefix(trimmed, "ObjectCreated"):
		return EventCreated, true
	case strings.HasPrefix(trimmed, "ObjectRemoved"):
		return EventRemoved, true
	default:
		return 0, false
	}
}
