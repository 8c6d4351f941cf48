// Package frame holds calibrated image data the way the measurement
// code wants it: a grid of float64 pixel values, an optional variance
// plane of the same geometry, and an origin offset so a frame can be a
// cutout of a larger mosaic.
package frame

import(
	"fmt"
	"math"
)

type Frame struct {
	stride   int
	values   []float64
	variance []float64 // nil when the frame carries no variance data

	x0, y0 int // origin offset, in parent coordinates
}

func New(w, h int) *Frame {
	return &Frame{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (f *Frame)Width() int  { return f.stride }
func (f *Frame)Height() int { return len(f.values) / f.stride }
func (f *Frame)X0() int     { return f.x0 }
func (f *Frame)Y0() int     { return f.y0 }

func (f *Frame)SetOrigin(x0, y0 int) { f.x0, f.y0 = x0, y0 }

func (f *Frame)Set(x, y int, v float64)  { f.values[f.stride*y+x] = v }
func (f *Frame)Value(x, y int) float64   { return f.values[f.stride*y+x] }

func (f *Frame)HasVariance() bool { return f.variance != nil }

// Variance returns the per-pixel variance, or NaN when the frame has
// no variance plane.
func (f *Frame)Variance(x, y int) float64 {
	if f.variance == nil {
		return math.NaN()
	}
	return f.variance[f.stride*y+x]
}

func (f *Frame)SetVariance(x, y int, v float64) {
	if f.variance == nil {
		f.variance = make([]float64, len(f.values))
	}
	f.variance[f.stride*y+x] = v
}

// FillVariance sets every pixel's variance to v.
func (f *Frame)FillVariance(v float64) {
	if f.variance == nil {
		f.variance = make([]float64, len(f.values))
	}
	for i := range f.variance {
		f.variance[i] = v
	}
}

// SynthesizeVariance builds a variance plane from a simple CCD noise
// model: shot noise at the given gain (e-/ADU) plus read noise (ADU).
func (f *Frame)SynthesizeVariance(gain, readNoise float64) {
	if f.variance == nil {
		f.variance = make([]float64, len(f.values))
	}
	for i, v := range f.values {
		if v < 0 {
			v = 0
		}
		f.variance[i] = v/gain + readNoise*readNoise
	}
}

// AddGaussian injects an elliptical Gaussian source of the given peak
// amplitude and covariance (sxx,sxy,syy), centered at (cx,cy) in local
// coordinates. Used for synthetic test frames and the CLI selftest.
func (f *Frame)AddGaussian(cx, cy, amp, sxx, sxy, syy float64) error {
	det := sxx*syy - sxy*sxy
	if det <= 0 {
		return fmt.Errorf("injected shape (%g,%g,%g) is not positive definite", sxx, sxy, syy)
	}
	w11 := syy / det
	w12 := -sxy / det
	w22 := sxx / det

	for y := 0; y < f.Height(); y++ {
		dy := float64(y) - cy
		for x := 0; x < f.Width(); x++ {
			dx := float64(x) - cx
			q := dx*dx*w11 + 2*dx*dy*w12 + dy*dy*w22
			f.values[f.stride*y+x] += amp * math.Exp(-0.5*q)
		}
	}
	return nil
}

func (f *Frame)Stats() string {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for _, v := range f.values {
		if v > max { max = v }
		if v < min { min = v }
	}
	return fmt.Sprintf("frame[%dx%d+%d+%d, vals{%f,%f}, variance:%t]",
		f.Width(), f.Height(), f.x0, f.y0, min, max, f.HasVariance())
}
