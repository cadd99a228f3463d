package curate

import (
	"image"
)

// DefaultVarianceThreshold is the minimum per-channel variance of a usable frame.
const DefaultVarianceThreshold = 2000

// Verdict is the outcome of classifying a frame.
type Verdict int

const (
	Reject Verdict = iota
	Accept
)

func (v Verdict) String() string {
	if v == Accept {
		return "accept"
	}
	return "reject"
}

// Stats holds per-channel (R, G, B) statistics over a region.
type Stats struct {
	Mean     [3]float64
	Variance [3]float64
	Pixels   int
}

// Classifier rejects frames that are too flat, washed out or under-lit.
type Classifier struct {
	ROI       image.Rectangle
	Threshold float64
}

// NewClassifier returns a Classifier for the given region and threshold.
func NewClassifier(roi image.Rectangle, threshold float64) *Classifier {
	return &Classifier{ROI: roi, Threshold: threshold}
}

// Classify accepts img only if every channel's variance over the region of
// interest reaches the threshold.
func (c *Classifier) Classify(img image.Image) Verdict {
	v, _ := c.Evaluate(img)
	return v
}

// Evaluate is Classify that also returns the statistics it decided on.
func (c *Classifier) Evaluate(img image.Image) (Verdict, Stats) {
	st := Measure(crop(img, c.ROI))
	if st.Pixels == 0 {
		return Reject, st
	}
	for _, v := range st.Variance {
		if v < c.Threshold {
			return Reject, st
		}
	}
	return Accept, st
}

// Measure computes per-channel mean and population variance of img.
func Measure(img *image.RGBA) Stats {
	var sum, sum2 [3]float64
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			for c := 0; c < 3; c++ {
				v := float64(row[i+c])
				sum[c] += v
				sum2[c] += v * v
			}
		}
	}

	st := Stats{Pixels: n}
	if n == 0 {
		return st
	}
	fn := float64(n)
	for c := 0; c < 3; c++ {
		st.Mean[c] = sum[c] / fn
		st.Variance[c] = (sum2[c] - sum[c]*sum[c]/fn) / fn
	}
	return st
}
