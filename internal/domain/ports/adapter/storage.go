package adapter

import (
	"context"
	"time"
)

type Bucket string

const (
	BucketAudio    Bucket = "audio"
	BucketPreviews Bucket = "previews"
)

// BlobStore is an opaque key/value blob store; the core does not care what
// backs it.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, bucket Bucket) (string, error)
	Get(ctx context.Context, key string, bucket Bucket) ([]byte, error)
	SignedURL(key string, bucket Bucket, ttl time.Duration) (string, error)
}
