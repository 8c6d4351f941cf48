package adamom

import(
	"fmt"
	"math"
)

// ComputeFixedMomentsFlux measures the flux of the object at center
// (parent coordinates) under a fixed, externally supplied elliptical
// Gaussian shape: no iteration, no shape re-estimation. This is how a
// flux gets measured at a shape determined elsewhere (e.g. the PSF
// shape, or another object's converged shape).
//
// A pure function of its inputs: identical arguments give identical
// results.
func ComputeFixedMomentsFlux(img Accessor, shape Quad, cx, cy float64) (FluxResult, error) {
	nan := math.NaN()
	res := FluxResult{nan, nan}

	// Arguments are in parent coordinates, the work is local.
	xcen := cx - float64(img.X0())
	ycen := cy - float64(img.Y0())

	bb := momentsBBox(img, xcen, ycen, shape.XX, shape.YY)

	w, detW, ok := solveWeights(shape.XX, shape.XY, shape.YY)
	if !ok {
		return res, fmt.Errorf("%w: input shape %+v", ErrSingular, shape)
	}

	interp := shouldInterp(shape.XX, shape.YY, detW)

	sum, err := calcFluxSum(img, xcen, ycen, bb, 0.0, interp, w)
	if err != nil {
		return res, err
	}

	// The weight kernel integrates to half the Gaussian normalization,
	// so the weighted sum underestimates the flux by exactly 2.
	res.InstFlux = sum * 2.0

	if img.HasVariance() {
		ix := int(xcen)
		iy := int(ycen)
		if ix < 0 || ix >= img.Width() || iy < 0 || iy >= img.Height() {
			return res, fmt.Errorf("%w: center (%d,%d) not in frame (%dx%d)",
				ErrBounds, ix, iy, img.Width(), img.Height())
		}
		v := img.Variance(ix, iy)
		// 0th moment error = sqrt(var / wArea); flux (error) = 2 * wArea * i0 (error)
		wArea := math.Pi * math.Sqrt(shape.Det())
		res.InstFluxErr = 2 * math.Sqrt(v*wArea)
	}

	return res, nil
}
