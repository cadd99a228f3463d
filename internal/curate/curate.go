// Package curate decides whether a captured frame is usable and turns
// accepted frames into prepared frames.
package curate

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/evmaki/pothos/internal/apperr"
)

// DefaultROI excludes the left edge and the shelf bolts at the bottom of
// the 1280x960 capture.
func DefaultROI() image.Rectangle {
	return image.Rect(200, 0, 1280, 880)
}

// Decode reads and decodes the image at path. A file that exists but is
// not a decodable image yields an error matching apperr.ErrDecode.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("curate: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrDecode, path, err)
	}
	return img, nil
}

// crop copies the part of img inside roi into a fresh RGBA image whose
// bounds start at the origin. roi is clipped to the image bounds.
func crop(img image.Image, roi image.Rectangle) *image.RGBA {
	r := roi.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
