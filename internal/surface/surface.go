package surface

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF format decoder
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// ErrDecode indicates a source file or stream could not be decoded as an
// image. Decode failures are fatal for the current operation; no partial
// surface is ever returned.
var ErrDecode = errors.New("image decode failure")

// Info contains basic metadata about a decoded surface.
type Info struct {
	// Width is the surface width in pixels.
	Width int `json:"width"`

	// Height is the surface height in pixels.
	Height int `json:"height"`

	// HasAlpha indicates whether the decoded image carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`
}

// Decode reads and decodes an image from r.
//
// Supported formats are PNG, JPEG, and GIF. The returned image is the
// decoder's native type; use Clone to obtain a mutable NRGBA surface.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// LoadFile opens and decodes the image at path.
func LoadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Describe returns metadata for a decoded surface.
func Describe(img image.Image) Info {
	bounds := img.Bounds()

	hasAlpha := false
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
	}

	return Info{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		HasAlpha: hasAlpha,
	}
}

// Clone returns a mutable NRGBA copy of img with bounds anchored at (0,0).
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// Resize resamples img to width×height using Lanczos interpolation.
// Both dimensions must be positive.
func Resize(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize dimensions %dx%d", width, height)
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// ResizeToFit resamples img so its longer side equals maxSide, preserving
// aspect ratio. Images already within the limit are cloned unchanged.
func ResizeToFit(img image.Image, maxSide int) (*image.NRGBA, error) {
	if maxSide <= 0 {
		return nil, fmt.Errorf("invalid max side %d", maxSide)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSide && h <= maxSide {
		return imaging.Clone(img), nil
	}

	if w >= h {
		return Resize(img, maxSide, int(float64(h)*float64(maxSide)/float64(w)))
	}
	return Resize(img, int(float64(w)*float64(maxSide)/float64(h)), maxSide)
}

// Crop extracts the given rectangle from img as a new surface.
func Crop(img image.Image, rect image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, rect)
}

// EncodeJPEG encodes the surface as JPEG at the given quality factor
// (1-100). Quality outside that range is clamped.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes the surface as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
