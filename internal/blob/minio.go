// Package blob stores uploaded files in an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store is the blob collaborator used by the content and identity services.
// Handles returned by Put are object keys.
type Store interface {
	Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
	URLFor(ctx context.Context, handle string) (string, error)
	Remove(ctx context.Context, handle string) error
}

type Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	UseSSL     bool
	PresignTTL time.Duration
}

type MinioStore struct {
	client     *minio.Client
	transport  *http.Transport
	bucket     string
	region     string
	presignTTL time.Duration
	now        func() time.Time
}

func NewMinioStore(cfg Config) (*MinioStore, error) {
	transport, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("create s3 transport: %w", err)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MinioStore{
		client:     client,
		transport:  transport,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		presignTTL: ttl,
		now:        time.Now,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// ObjectKey builds a fresh key for an upload, keeping the original extension.
func ObjectKey(filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), ext)
}

func (s *MinioStore) Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(filename, s.now())
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// URLFor returns a presigned GET URL for the object.
func (s *MinioStore) URLFor(ctx context.Context, handle string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, handle, s.presignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", handle, err)
	}
	return u.String(), nil
}

func (s *MinioStore) Remove(ctx context.Context, handle string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", handle, err)
	}
	return nil
}

// Close releases idle connections held by the client transport.
func (s *MinioStore) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}
