package card

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const (
	FilenamePrefix = "quote"
	ContentTypePNG = "image/png"
)

// Export is an encoded card ready to be handed to a download or upload.
type Export struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Filename formats prefix_YYYYMMDD_HHMMSS.png in the timezone of now.
func Filename(prefix string, now time.Time) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = FilenamePrefix
	}

	return fmt.Sprintf("%s_%s.png", prefix, now.Format("20060102_150405"))
}

// ExportPNG encodes the surface as PNG and names it after now.
func ExportPNG(s *Surface, now time.Time) (Export, error) {
	var buf bytes.Buffer
	if err := s.dc.EncodePNG(&buf); err != nil {
		return Export{}, fmt.Errorf("encode PNG: %w", err)
	}

	return Export{
		Data:        buf.Bytes(),
		Filename:    Filename(FilenamePrefix, now),
		ContentType: ContentTypePNG,
	}, nil
}

// Thumbnail scales the surface down to fit within width x height, keeping
// its aspect ratio.
func Thumbnail(s *Surface, width, height int) image.Image {
	return imaging.Fit(s.Image(), width, height, imaging.Lanczos)
}

// ExportThumbnail encodes a Thumbnail sized for the preview slot.
func ExportThumbnail(s *Surface, now time.Time) (Export, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Thumbnail(s, PreviewWidth, PreviewHeight)); err != nil {
		return Export{}, fmt.Errorf("encode thumbnail PNG: %w", err)
	}

	return Export{
		Data:        buf.Bytes(),
		Filename:    Filename(FilenamePrefix+"_thumb", now),
		ContentType: ContentTypePNG,
	}, nil
}
