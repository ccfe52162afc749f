// Package storage keeps customer job photos in object storage.
//
// Implementations:
// - LocalStorage: files under a directory, for development
// - R2Storage: Cloudflare R2 through the S3 API, for production
//
// Objects are private. Clients reach them through short-lived URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Storage defines the object storage operations the photo service needs.
type Storage interface {
	// Put stores data at key. Existing objects are replaced.
	// Returns ErrTooLarge if data exceeds opts.MaxSize.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for the object valid for at least expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is detected from the key when empty.
	ContentType string

	// MaxSize rejects larger bodies with ErrTooLarge. Zero means no limit.
	MaxSize int64
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory, e.g. "./data/photos".
	BasePath string

	// BaseURL is the URL prefix the server mounts BasePath on, e.g.
	// "http://localhost:8080/files".
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// Region defaults to "auto".
	Region string

	// Endpoint overrides https://{account}.r2.cloudflarestorage.com, for
	// S3-compatible stand-ins such as MinIO.
	Endpoint string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// JobPhotoKey is the key of an uploaded photo.
// Format: jobs/{jobID}/photos/{photoID}{ext}
func JobPhotoKey(jobID int64, photoID uuid.UUID, ext string) string {
	return fmt.Sprintf("jobs/%d/photos/%s%s", jobID, photoID, ext)
}

// JobThumbnailKey is the key of a photo's JPEG thumbnail.
// Format: jobs/{jobID}/thumbnails/{photoID}.jpg
func JobThumbnailKey(jobID int64, photoID uuid.UUID) string {
	return fmt.Sprintf("jobs/%d/thumbnails/%s.jpg", jobID, photoID)
}
