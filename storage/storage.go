package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned when a storage path does not exist
var ErrObjectNotFound = errors.New("object not found")

// Storage prefixes
const (
	PrefixDocuments  = "documents"
	PrefixFrameworks = "frameworks"
)

// Storage interface for file storage operations
type Storage interface {
	// Upload stores a file under prefix and returns the storage path
	Upload(ctx context.Context, prefix string, fileID uuid.UUID, filename string, data io.Reader) (string, error)

	// Download retrieves a file by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes a file by storage path. Deleting a missing file is not an error.
	Delete(ctx context.Context, storagePath string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
	AWSSession   string

	MinioEndpoint  string
	MinioBucket    string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(ctx context.Context, cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		return NewS3Storage(ctx, cfg)
	case StorageTypeMinio:
		return NewMinioStorage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ConfigFromEnv reads the storage configuration from environment variables
func ConfigFromEnv() (StorageConfig, error) {
	storageType := os.Getenv("STORAGE_TYPE")
	if storageType == "" {
		storageType = "local" // Default to local for development
	}

	cfg := StorageConfig{
		Type: StorageType(storageType),
	}

	switch cfg.Type {
	case StorageTypeLocal:
		cfg.LocalPath = os.Getenv("STORAGE_LOCAL_PATH")
		if cfg.LocalPath == "" {
			cfg.LocalPath = "./storage/files"
		}

	case StorageTypeS3:
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		cfg.AWSSession = os.Getenv("AWS_SESSION_TOKEN")
		if cfg.S3Bucket == "" {
			return cfg, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}

	case StorageTypeMinio:
		cfg.MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
		cfg.MinioBucket = os.Getenv("MINIO_BUCKET")
		if cfg.MinioBucket == "" {
			cfg.MinioBucket = "dockguard"
		}
		cfg.MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
		cfg.MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
		cfg.MinioUseSSL = os.Getenv("MINIO_USE_SSL") == "true"
		cfg.S3Region = os.Getenv("MINIO_REGION")
		if cfg.MinioEndpoint == "" {
			return cfg, errors.New("MINIO_ENDPOINT environment variable is required for MinIO storage")
		}

	default:
		return cfg, fmt.Errorf("unknown storage type: %s", storageType)
	}
	return cfg, nil
}

// NewStorageFromEnv creates a storage instance from environment variables
func NewStorageFromEnv(ctx context.Context) (Storage, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewStorage(ctx, cfg)
}

// generateStoragePath generates a unique storage path for a file
func generateStoragePath(prefix string, fileID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filepath.Base(filename), ext)
	baseName = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "..", "_").Replace(baseName)

	// fileID keeps names unique
	name := fmt.Sprintf("%s_%s%s", fileID.String(), baseName, strings.ToLower(ext))
	if prefix == "" {
		return path.Join(fileID.String()[:2], name)
	}
	return path.Join(prefix, fileID.String()[:2], name)
}

// ContentType determines content type from filename
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".md", ".markdown":
		return "text/markdown; charset=utf-8"
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
