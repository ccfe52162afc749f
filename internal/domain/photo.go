package domain

import (
	"time"

	"github.com/google/uuid"
)

// SupportedPhotoTypes maps accepted upload MIME types to display names.
var SupportedPhotoTypes = map[string]string{
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
}

const (
	// MaxPhotoSize is the largest photo a customer may upload (15MB).
	MaxPhotoSize = 15 * 1024 * 1024

	ThumbnailMaxWidth    = 320
	ThumbnailMaxHeight   = 320
	ThumbnailJPEGQuality = 85

	// PhotoURLExpiry is the lifetime of presigned photo URLs.
	PhotoURLExpiry = 15 * time.Minute
)

// JobPhoto is a picture a customer attached to a job (a leak, a water heater
// label) so the technician arrives prepared.
type JobPhoto struct {
	ID               uuid.UUID `json:"id"`
	JobID            int64     `json:"jobId"`
	CustomerID       int64     `json:"customerId"`
	StorageKey       string    `json:"-"`
	ThumbnailKey     string    `json:"-"`
	OriginalFilename string    `json:"filename"`
	ContentType      string    `json:"contentType"`
	SizeBytes        int64     `json:"sizeBytes"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	CreatedAt        time.Time `json:"createdAt"`

	// Populated by the service, not stored.
	URL          string `json:"url,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// IsValidPhotoContentType checks if the content type is supported.
func IsValidPhotoContentType(contentType string) bool {
	_, ok := SupportedPhotoTypes[contentType]
	return ok
}

// ValidatePhotoSize checks if the file size is within limits.
func ValidatePhotoSize(size int64) error {
	if size > MaxPhotoSize {
		return Errorf(ETOOLARGE, "photo.validate", "Photo is %.1fMB, the limit is %.0fMB", float64(size)/(1024*1024), float64(MaxPhotoSize)/(1024*1024))
	}
	if size == 0 {
		return Invalid("photo.validate", "Photo file is empty")
	}
	return nil
}
