package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSCache stores entries as objects under a prefix in a Cloud Storage
// bucket. Objects older than the TTL are treated as misses; bucket lifecycle
// rules are expected to delete them.
type GCSCache struct {
	bucket *gcsstorage.BucketHandle
	prefix string
	ttl    time.Duration
}

// NewGCSClient creates a storage client, using credentialsFile when set and
// application default credentials otherwise.
func NewGCSClient(ctx context.Context, credentialsFile string) (*gcsstorage.Client, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcsstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}

// NewGCSCache creates a cache over bucket.
func NewGCSCache(bucket *gcsstorage.BucketHandle, prefix string, ttl time.Duration) *GCSCache {
	return &GCSCache{bucket: bucket, prefix: prefix, ttl: ttl}
}

func (c *GCSCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	reader, err := c.bucket.Object(c.prefix + key).NewReader(ctx)
	if errors.Is(err, gcsstorage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache object: %w", err)
	}
	defer reader.Close()

	if c.ttl > 0 && time.Since(reader.Attrs.LastModified) > c.ttl {
		return nil, false, nil
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache object: %w", err)
	}
	return data, true, nil
}

func (c *GCSCache) Set(ctx context.Context, key string, value []byte) error {
	w := c.bucket.Object(c.prefix + key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write cache object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write cache object: %w", err)
	}
	return nil
}
