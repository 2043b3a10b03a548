package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage interface for MinIO and other S3-compatible servers
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage connects to the server and creates the bucket if it is missing
func NewMinioStorage(ctx context.Context, cfg StorageConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.S3Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
	}

	return &MinioStorage{client: client, bucket: cfg.MinioBucket}, nil
}

// Upload streams a file to the bucket
func (s *MinioStorage) Upload(ctx context.Context, prefix string, fileID uuid.UUID, filename string, data io.Reader) (string, error) {
	storagePath := generateStoragePath(prefix, fileID, filename)

	_, err := s.client.PutObject(ctx, s.bucket, storagePath, data, -1, minio.PutObjectOptions{
		ContentType: ContentType(filename),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	return storagePath, nil
}

// Download retrieves a file from the bucket
func (s *MinioStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	// GetObject is lazy; Stat surfaces a missing key before the caller reads
	obj, err := s.client.GetObject(ctx, s.bucket, storagePath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download from MinIO: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to download from MinIO: %w", err)
	}

	return obj, nil
}

// Delete removes a file from the bucket
func (s *MinioStorage) Delete(ctx context.Context, storagePath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storagePath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete from MinIO: %w", err)
	}
	return nil
}
