// Package storage issues presigned uploads against S3-compatible object
// storage and verifies that uploaded objects exist.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"marketplace_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// PresignedURLTTL is the default expiration time for presigned URLs (15 minutes).
	PresignedURLTTL = 15 * time.Minute
)

// MinIOStore keeps request attachments in one bucket.
type MinIOStore struct {
	client      *minio.Client
	bucket      string
	maxFileSize int64
	now         func() time.Time
}

// NewMinIOStore creates a store for the request images bucket.
func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOStore{
		client:      client,
		bucket:      cfg.GetMinioBucketRequestImages(),
		maxFileSize: cfg.GetMinIOMaxFileSize(),
		now:         time.Now,
	}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOStore) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// PresignUpload returns a PUT URL for key. The signature covers the content
// type, so the upload must send the same Content-Type header.
func (s *MinIOStore) PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	if err := ValidateContentType(contentType); err != nil {
		return "", time.Time{}, err
	}

	expiresAt := s.now().Add(PresignedURLTTL)
	headers := http.Header{}
	headers.Set("Content-Type", contentType)

	presignedURL, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, key, PresignedURLTTL, url.Values{}, headers)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}
	return presignedURL.String(), expiresAt, nil
}

// Exists reports whether key was uploaded. Objects above the size limit are
// rejected.
func (s *MinIOStore) Exists(ctx context.Context, key string) (bool, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	if err := ValidateFileSize(info.Size, s.maxFileSize); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteObject removes an object from storage.
func (s *MinIOStore) DeleteObject(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
	}
	return false
}
