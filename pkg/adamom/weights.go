package adamom

import "math"

// Single-precision machine epsilon. The singularity tests historically
// ran in float, and the tolerances below are calibrated to that.
const floatEps = 1.1920929e-07

// Weight cutoffs: pixels whose Gaussian exponent exceeds maxExpon
// contribute negligibly and are skipped; maxInterpExpon is the
// (tighter) cutoff applied to the corner test in interpolated mode.
const (
	maxExpon       = 14.0
	maxInterpExpon = 9.0
)

// momentWeights are the precision (inverse covariance) coefficients of
// the current Gaussian weighting kernel.
type momentWeights struct {
	w11, w12, w22 float64
}

// solveWeights inverts the symmetric 2x2 covariance (s11,s12,s22) into
// precision weights. ok is false when any input is NaN or the
// determinant is too small to invert; the caller decides the fallback.
func solveWeights(s11, s12, s22 float64) (w momentWeights, det float64, ok bool) {
	nan := math.NaN()
	if math.IsNaN(s11) || math.IsNaN(s12) || math.IsNaN(s22) {
		return momentWeights{nan, nan, nan}, nan, false
	}
	det = s11*s22 - s12*s12
	if math.IsNaN(det) || det < floatEps {
		return momentWeights{nan, nan, nan}, det, false
	}
	return momentWeights{w11: s22 / det, w12: -s12 / det, w22: s11 / det}, det, true
}

// shouldInterp reports whether the weighting kernel is narrower than
// about half a pixel in some direction, in which case pixel-center
// sampling is too coarse and the accumulator must subdivide pixels.
func shouldInterp(s11, s22, det float64) bool {
	const xinterp = 0.25 // i.e. (0.5 px)^2
	return s11 < xinterp || s22 < xinterp || det < xinterp*xinterp
}

// A pixBox is an inclusive pixel range within a frame.
type pixBox struct {
	x0, x1, y0, y1 int
}

// momentsBBox picks the pixel region to accumulate over: a square of
// radius 4 sigma around the center (capped at maxRadius), clipped to
// the frame.
func momentsBBox(img Accessor, xcen, ycen, s11, s22 float64) pixBox {
	const maxRadius = 1000.0
	radius := math.Min(4*math.Sqrt(math.Max(s11, s22)), maxRadius)

	b := pixBox{
		x0: int(math.Floor(xcen - radius)),
		x1: int(math.Ceil(xcen + radius)),
		y0: int(math.Floor(ycen - radius)),
		y1: int(math.Ceil(ycen + radius)),
	}
	if b.x0 < 0 { b.x0 = 0 }
	if b.y0 < 0 { b.y0 = 0 }
	if b.x1 > img.Width()-1 { b.x1 = img.Width() - 1 }
	if b.y1 > img.Height()-1 { b.y1 = img.Height() - 1 }
	return b
}

// positionToIndex maps a continuous pixel position to the index of the
// pixel containing it (pixel centers sit on integer coordinates).
func positionToIndex(pos float64) int {
	return int(math.Floor(pos + 0.5))
}
