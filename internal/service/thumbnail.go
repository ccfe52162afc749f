package service

import (
	"bytes"
	"fmt"
	"io"

	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/disintegration/imaging"
)

// ThumbnailProcessor turns an uploaded photo into a small JPEG preview.
type ThumbnailProcessor interface {
	// GenerateThumbnail returns the JPEG thumbnail along with the width and
	// height of the source image. The thumbnail fits within maxWidth x
	// maxHeight with the aspect ratio kept.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

type imagingProcessor struct{}

// NewImagingProcessor creates a ThumbnailProcessor backed by imaging.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	// Phone cameras store rotation in EXIF, so apply it before resizing.
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode photo: %w", err)
	}

	bounds := img.Bounds()
	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(domain.ThumbnailJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}
