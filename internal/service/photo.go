package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/repository"
	"github.com/DukeRupert/plumbline/internal/storage"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PhotoService stores photos customers attach to their jobs.
//
// Ownership of the job is checked by the caller against the CRM before any
// method is invoked.
type PhotoService interface {
	// Upload stores the photo and its thumbnail and records it.
	// Returns domain.EINVALID for unsupported types and domain.ETOOLARGE for
	// oversized files.
	Upload(ctx context.Context, jobID, customerID int64, file multipart.File, header *multipart.FileHeader) (*domain.JobPhoto, error)

	// List returns the job's photos with short-lived URLs filled in.
	List(ctx context.Context, jobID int64) ([]domain.JobPhoto, error)
}

// PhotoQueries is the subset of repository.Queries the photo service needs.
type PhotoQueries interface {
	CreateJobPhoto(ctx context.Context, arg repository.CreateJobPhotoParams) (repository.JobPhoto, error)
	ListJobPhotosByJob(ctx context.Context, jobID int64) ([]repository.JobPhoto, error)
}

// =============================================================================
// Implementation
// =============================================================================

type photoService struct {
	queries    PhotoQueries
	storage    storage.Storage
	thumbnails ThumbnailProcessor
	logger     *slog.Logger
}

// NewPhotoService creates a new PhotoService.
func NewPhotoService(queries PhotoQueries, store storage.Storage, thumbnails ThumbnailProcessor, logger *slog.Logger) PhotoService {
	return &photoService{
		queries:    queries,
		storage:    store,
		thumbnails: thumbnails,
		logger:     logger,
	}
}

func (s *photoService) Upload(ctx context.Context, jobID, customerID int64, file multipart.File, header *multipart.FileHeader) (*domain.JobPhoto, error) {
	const op = "PhotoService.Upload"

	if err := domain.ValidatePhotoSize(header.Size); err != nil {
		return nil, err
	}

	// Read one byte past the limit so a lying Content-Length is still caught.
	data, err := io.ReadAll(io.LimitReader(file, domain.MaxPhotoSize+1))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read photo")
	}
	if err := domain.ValidatePhotoSize(int64(len(data))); err != nil {
		return nil, err
	}

	// Sniff the type from content; the client's header is not trusted.
	contentType := storage.BaseContentType(http.DetectContentType(data))
	if !domain.IsValidPhotoContentType(contentType) {
		return nil, domain.NewValidationError(op, "photo", fmt.Sprintf("Unsupported photo type %s. Only JPEG and PNG are accepted.", contentType))
	}

	thumb, width, height, err := s.thumbnails.GenerateThumbnail(bytes.NewReader(data), domain.ThumbnailMaxWidth, domain.ThumbnailMaxHeight)
	if err != nil {
		return nil, domain.NewValidationError(op, "photo", "The photo could not be read. Please try a different file.")
	}

	photoID := uuid.New()
	photoKey := storage.JobPhotoKey(jobID, photoID, storage.ExtensionForContentType(contentType))
	thumbKey := storage.JobThumbnailKey(jobID, photoID)

	if err := s.storage.Put(ctx, photoKey, bytes.NewReader(data), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     domain.MaxPhotoSize,
	}); err != nil {
		return nil, domain.Wrap(err, domain.EUPSTREAM, op, "Photo storage is temporarily unavailable. Please try again.")
	}
	if err := s.storage.Put(ctx, thumbKey, bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
	}); err != nil {
		s.cleanup(ctx, photoKey)
		return nil, domain.Wrap(err, domain.EUPSTREAM, op, "Photo storage is temporarily unavailable. Please try again.")
	}

	row, err := s.queries.CreateJobPhoto(ctx, repository.CreateJobPhotoParams{
		ID:               photoID,
		JobID:            jobID,
		CustomerID:       customerID,
		StorageKey:       photoKey,
		ThumbnailKey:     thumbKey,
		OriginalFilename: nullString(header.Filename),
		ContentType:      contentType,
		SizeBytes:        int64(len(data)),
		Width:            int32(width),
		Height:           int32(height),
	})
	if err != nil {
		s.cleanup(ctx, photoKey, thumbKey)
		return nil, domain.Internal(err, op, "failed to record photo")
	}

	s.logger.Info("job photo uploaded", "job_id", jobID, "photo_id", photoID, "size", len(data))

	photo := photoToDomain(row)
	s.sign(ctx, &photo)
	return &photo, nil
}

func (s *photoService) List(ctx context.Context, jobID int64) ([]domain.JobPhoto, error) {
	const op = "PhotoService.List"

	rows, err := s.queries.ListJobPhotosByJob(ctx, jobID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list photos")
	}

	photos := make([]domain.JobPhoto, len(rows))
	for i, row := range rows {
		photos[i] = photoToDomain(row)
		s.sign(ctx, &photos[i])
	}
	return photos, nil
}

// sign fills in the photo URLs. A failure leaves them empty; the listing is
// still useful without previews.
func (s *photoService) sign(ctx context.Context, p *domain.JobPhoto) {
	var err error
	if p.URL, err = s.storage.URL(ctx, p.StorageKey, domain.PhotoURLExpiry); err != nil {
		s.logger.Warn("failed to sign photo url", "key", p.StorageKey, "error", err)
	}
	if p.ThumbnailURL, err = s.storage.URL(ctx, p.ThumbnailKey, domain.PhotoURLExpiry); err != nil {
		s.logger.Warn("failed to sign thumbnail url", "key", p.ThumbnailKey, "error", err)
	}
}

func (s *photoService) cleanup(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Error("failed to remove orphaned photo object", "key", key, "error", err)
		}
	}
}

func photoToDomain(row repository.JobPhoto) domain.JobPhoto {
	return domain.JobPhoto{
		ID:               row.ID,
		JobID:            row.JobID,
		CustomerID:       row.CustomerID,
		StorageKey:       row.StorageKey,
		ThumbnailKey:     row.ThumbnailKey,
		OriginalFilename: row.OriginalFilename.String,
		ContentType:      row.ContentType,
		SizeBytes:        row.SizeBytes,
		Width:            int(row.Width),
		Height:           int(row.Height),
		CreatedAt:        row.CreatedAt,
	}
}
