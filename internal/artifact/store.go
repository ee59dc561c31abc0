// Package artifact generates and stores opaque confirmation artifacts for
// bookings, plus visitor images. Storage is a pluggable blob store: a local
// directory for development, S3 in production.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"receptionist/pkg/logging"
)

// BlobStore persists raw bytes under a key and returns an opaque reference.
type BlobStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

// LocalStore writes blobs into a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(key))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", path, err)
	}
	return path, nil
}

// S3Store uploads blobs to a bucket and returns s3://bucket/key references.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *logging.Logger
}

// NewS3Store wraps an S3 client for the given bucket.
func NewS3Store(client *s3.Client, bucket string, logger *logging.Logger) *S3Store {
	if client == nil {
		panic("artifact: s3 client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Store{client: client, bucket: bucket, logger: logger}
}

func (s *S3Store) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("artifact: s3 put %s: %w", key, err)
	}
	s.logger.Debug("artifact uploaded", "bucket", s.bucket, "key", key)
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
