package curate

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/evmaki/pothos/internal/storage"
)

const (
	DefaultContrast    = 1.05
	DefaultGreenScale  = 0.96
	DefaultJPEGQuality = 75
)

// Transformer crops, boosts contrast and rebalances colour of accepted
// frames. Output depends only on the input pixels and the fields below.
type Transformer struct {
	ROI        image.Rectangle
	Contrast   float64
	GreenScale float64
	Quality    int
}

// NewTransformer returns a Transformer with the given constants.
func NewTransformer(roi image.Rectangle, contrast, greenScale float64, quality int) *Transformer {
	return &Transformer{ROI: roi, Contrast: contrast, GreenScale: greenScale, Quality: quality}
}

// Transform returns the prepared version of img.
func (t *Transformer) Transform(img image.Image) *image.RGBA {
	out := crop(img, t.ROI)
	t.enhanceContrast(out)
	t.rebalance(out)
	return out
}

// enhanceContrast blends each pixel away from a flat grey at the mean
// luminance of the frame.
func (t *Transformer) enhanceContrast(img *image.RGBA) {
	grey := meanLuma(img)
	if grey < 0 {
		return
	}
	g := float64(grey)
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := g + t.Contrast*(float64(img.Pix[i+c])-g)
			img.Pix[i+c] = truncate8(v)
		}
	}
}

// rebalance applies the diagonal colour matrix diag(1, GreenScale, 1).
func (t *Transformer) rebalance(img *image.RGBA) {
	for i := 1; i < len(img.Pix); i += 4 {
		img.Pix[i] = round8(float64(img.Pix[i]) * t.GreenScale)
	}
}

// Save JPEG-encodes img and writes it atomically to path.
func (t *Transformer) Save(img image.Image, path string) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.Quality}); err != nil {
		return fmt.Errorf("curate: encode %s: %w", path, err)
	}
	if _, err := storage.WriteFileAtomic(path, &buf); err != nil {
		return fmt.Errorf("curate: save %s: %w", path, err)
	}
	return nil
}

// meanLuma is the rounded mean of ITU-R 601 luminance, or -1 for an empty
// image.
func meanLuma(img *image.RGBA) int {
	var sum, n uint64
	for i := 0; i < len(img.Pix); i += 4 {
		r, g, b := uint64(img.Pix[i]), uint64(img.Pix[i+1]), uint64(img.Pix[i+2])
		sum += (r*19595 + g*38470 + b*7471 + 0x8000) >> 16
		n++
	}
	if n == 0 {
		return -1
	}
	return int(float64(sum)/float64(n) + 0.5)
}

func truncate8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func round8(v float64) uint8 {
	return truncate8(v + 0.5)
}
