package storage

import (
	"context"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService defines the public interface for the recording file store.
// Recording files are written into the bucket by the egress provider; the
// server only reads, presigns, and deletes them.
type StorageService interface {
	// PresignDownload generates a pre-signed URL for playing back a recording.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Download fetches the full recording object into memory for proxied playback.
	Download(ctx context.Context, key string) ([]byte, error)

	// Delete removes the recording file specified by the given key.
	Delete(ctx context.Context, key string) error

	// GetObjectMetadata retrieves the recording file's metadata.
	GetObjectMetadata(ctx context.Context, key string) (map[string]string, error)
}

// NewStorageService is the factory function for StorageService.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(cfg)
}
