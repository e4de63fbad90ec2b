// Package storage provides access to the document corpus in S3-compatible
// object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/models"
)

// Fetcher retrieves document bodies by storage location.
type Fetcher interface {
	FetchDocument(ctx context.Context, bucket, key string) (string, error)
}

// Client wraps a MinIO connection for document fetching and change
// notifications.
type Client struct {
	mc     *minio.Client
	logger *logrus.Logger
}

// NewClient connects to the configured S3-compatible endpoint.
func NewClient(cfg config.StorageConfig, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Client{mc: mc, logger: logger}, nil
}

// FetchDocument reads the whole body of one object as text.
func (c *Client) FetchDocument(ctx context.Context, bucket, key string) (string, error) {
	obj, err := c.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	return string(data), nil
}

// ListKeys returns every object key under a prefix, for replaying a bucket
// through the indexing pipeline.
func (c *Client) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}

	var keys []string
	for obj := range c.mc.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Listen subscribes to bucket notifications and emits each notification as a
// decoded event batch. The channel closes when ctx is cancelled.
func (c *Client) Listen(ctx context.Context, bucket string) <-chan []models.StorageEvent {
	out := make(chan []models.StorageEvent)

	eventTypes := []string{"s3:ObjectCreated:*", "s3:ObjectRemoved:*"}
	notifications := c.mc.ListenBucketNotification(ctx, bucket, "", "", eventTypes)

	go func() {
		defer close(out)
		for info := range notifications {
			if info.Err != nil {
				c.logger.WithError(info.Err).Error("bucket notification stream error")
				continue
			}

			events := make([]models.StorageEvent, 0, len(info.Records))
			for _, rec := range info.Records {
				kind, ok := models.ClassifyEventName(rec.EventName)
				if !ok {
					continue
				}
				key, err := url.QueryUnescape(rec.S3.Object.Key)
				if err != nil {
					key = rec.S3.Object.Key
				}
				events = append(events, models.StorageEvent{
					Kind:   kind,
					Bucket: rec.S3.Bucket.Name,
					Key:    key,
				})
			}
			if len(events) == 0 {
				continue
			}

			select {
			case out <- events:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
