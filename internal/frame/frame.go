// Package frame decodes captured stills and normalises them to JPEG, the
// format member photos are stored in.
package frame

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// JPEGQuality is used when a non-JPEG frame has to be re-encoded
const JPEGQuality = 95

// Decode decodes any supported format: JPEG, PNG, GIF, BMP, TIFF, WebP
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", domain.ErrInvalidImage.WithError(err)
	}
	return img, format, nil
}

// Dimensions reads the width and height without decoding pixels
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, domain.ErrInvalidImage.WithError(err)
	}
	return cfg.Width, cfg.Height, nil
}

// NormalizeJPEG returns data unchanged when it already is a JPEG, otherwise
// it decodes and re-encodes it.
func NormalizeJPEG(data []byte) ([]byte, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	if format == "jpeg" {
		return data, nil
	}

	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
