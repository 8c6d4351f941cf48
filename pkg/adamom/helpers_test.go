package adamom

import "math"

// testFrame is a minimal Accessor for the tests: a pixel grid with a
// constant-variance plane.
type testFrame struct {
	w, h   int
	pix    []float64
	varVal float64
	hasVar bool
	x0, y0 int
}

func newTestFrame(w, h int) *testFrame {
	return &testFrame{w: w, h: h, pix: make([]float64, w*h)}
}

func (t *testFrame)Value(x, y int) float64 { return t.pix[y*t.w+x] }
func (t *testFrame)HasVariance() bool      { return t.hasVar }
func (t *testFrame)Width() int             { return t.w }
func (t *testFrame)Height() int            { return t.h }
func (t *testFrame)X0() int                { return t.x0 }
func (t *testFrame)Y0() int                { return t.y0 }

func (t *testFrame)Variance(x, y int) float64 {
	if !t.hasVar {
		return math.NaN()
	}
	return t.varVal
}

func (t *testFrame)withVariance(v float64) *testFrame {
	t.varVal = v
	t.hasVar = true
	return t
}

// addGaussian injects an elliptical Gaussian of peak amplitude amp and
// covariance (sxx,sxy,syy) at (cx,cy), local coordinates.
func (t *testFrame)addGaussian(cx, cy, amp, sxx, sxy, syy float64) {
	det := sxx*syy - sxy*sxy
	w11, w12, w22 := syy/det, -sxy/det, sxx/det
	for y := 0; y < t.h; y++ {
		dy := float64(y) - cy
		for x := 0; x < t.w; x++ {
			dx := float64(x) - cx
			q := dx*dx*w11 + 2*dx*dy*w12 + dy*dy*w22
			t.pix[y*t.w+x] += amp * math.Exp(-0.5*q)
		}
	}
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func nearRel(a, b, tol float64) bool {
	if b == 0 {
		return math.Abs(a) <= tol
	}
	return math.Abs(a/b-1) <= tol
}
