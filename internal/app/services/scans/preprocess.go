package scans

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	apperrors "github.com/pawmate/pawmate/internal/errors"
)

const (
	MaxImageBytes = 10 << 20
	MinDimension  = 64
	MaxDimension  = 8000
)

// Preprocess reads an upload and checks its type, size and dimensions. Only
// the image header is decoded.
func Preprocess(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return Image{}, apperrors.InvalidInput("read image: %v", err)
	}
	if len(data) == 0 {
		return Image{}, apperrors.InvalidInput("image is empty")
	}
	if len(data) > MaxImageBytes {
		return Image{}, apperrors.InvalidInput("image exceeds %d MiB", MaxImageBytes>>20)
	}

	contentType := http.DetectContentType(data)
	if contentType != "image/jpeg" && contentType != "image/png" {
		return Image{}, apperrors.InvalidInput("unsupported image type %s, want JPEG or PNG", contentType)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, apperrors.InvalidInput("image header is corrupt: %v", err)
	}
	if cfg.Width < MinDimension || cfg.Height < MinDimension {
		return Image{}, apperrors.InvalidInput("image must be at least %dx%d", MinDimension, MinDimension)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return Image{}, apperrors.InvalidInput("image must be at most %dx%d", MaxDimension, MaxDimension)
	}
	return Image{Data: data, ContentType: contentType, Width: cfg.Width, Height: cfg.Height}, nil
}
