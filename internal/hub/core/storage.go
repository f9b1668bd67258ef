package core

import (
	"context"
	"io"
	"time"
)

// Storage defines the object storage operations used by roster exports.
type Storage interface {
	// Put uploads an object of the given size.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// GeneratePresignedURL generates a temporary URL for downloading an object.
	GeneratePresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// CheckBucket makes sure the bucket exists.
	CheckBucket(ctx context.Context) error
}
