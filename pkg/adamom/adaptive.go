package adamom

import(
	"log"
	"math"
)

// getAdaptiveMoments runs the fixed-point iteration: measure the
// object's moments under the current Gaussian weight, then re-estimate
// the weight from the measured moments, until the two agree.
//
// The update uses the product-of-Gaussians identity: the weighted
// object is the product of the (unknown) object Gaussian and the
// weight Gaussian, so their precision matrices add. Subtracting the
// weight's precision from the measured precision estimates the
// object's own covariance, which becomes the next weight. When the
// object is badly non-Gaussian (e.g. a double source) that subtraction
// goes singular; we then fall back to unweighted moments.
//
// All coordinates are local to the frame. Returns false when the
// measurement failed outright.
func getAdaptiveMoments(img Accessor, bkgd, xcen, ycen, shiftmax float64,
	res *MomentsResult, maxIter int, tol1, tol2 float64, negative bool) (bool, error) {

	if math.IsNaN(xcen) || math.IsNaN(ycen) {
		res.Flags.Set(FlagUnweightedBad)
		return false, nil
	}

	xcen0, ycen0 := xcen, ycen

	// Weighting covariance; isotropic starting guess.
	sigma11W, sigma12W, sigma22W := 1.5, 0.0, 1.5

	w := momentWeights{-1, -1, -1} // always set when iter == 0
	e1Old, e2Old := 1e6, 1e6
	sigma11OwOld := 1e6

	var i0 float64
	var m rawMoments
	interp := false // stays set once triggered, for this object
	var bb pixBox

	iter := 0
	for ; iter < maxIter; iter++ {
		bb = momentsBBox(img, xcen, ycen, sigma11W, sigma22W)

		next, detW, ok := solveWeights(sigma11W, sigma12W, sigma22W)
		if !ok {
			res.Flags.Set(FlagUnweighted)
			break
		}

		if sigma11W*sigma22W < sigma12W*sigma12W-floatEps {
			return false, nil
		}

		ow := w
		w = next

		if shouldInterp(sigma11W, sigma22W, detW) && !interp {
			interp = true
			if iter > 0 {
				// Redo this step with the previous weights so the switch to
				// subpixel sampling doesn't look like a moment jump.
				sigma11OwOld = 1e6 // force at least one more iteration
				w = ow
				iter--
			}
		}

		var ok2 bool
		var err error
		i0, m, ok2, err = calcMoments(img, xcen, ycen, bb, bkgd, interp, w, negative)
		if err != nil {
			return false, err
		}
		if !ok2 {
			res.Flags.Set(FlagUnweighted)
			break
		}

		res.X = m.sumx / m.sum
		res.Y = m.sumy / m.sum
		res.Sums4 = m.sums4

		if math.Abs(res.X-xcen0) > shiftmax || math.Abs(res.Y-ycen0) > shiftmax {
			res.Flags.Set(FlagShift)
		}

		// Moments of the weighted object.
		sigma11Ow := m.sumxx / m.sum
		sigma22Ow := m.sumyy / m.sum
		sigma12Ow := m.sumxy / m.sum

		if sigma11Ow <= 0 || sigma22Ow <= 0 {
			res.Flags.Set(FlagUnweighted)
			break
		}

		d := sigma11Ow + sigma22Ow
		e1 := (sigma11Ow - sigma22Ow) / d
		e2 := 2.0 * sigma12Ow / d

		if iter > 0 && math.Abs(e1-e1Old) < tol1 && math.Abs(e2-e2Old) < tol1 &&
			math.Abs(sigma11Ow/sigma11OwOld-1.0) < tol2 {
			break // converged
		}

		e1Old, e2Old, sigma11OwOld = e1, e2, sigma11Ow

		// Re-estimate the weight: measured precision minus weight
		// precision gives the object's precision; invert back to a
		// covariance for the next pass.
		owInv, _, ok := solveWeights(sigma11Ow, sigma12Ow, sigma22Ow)
		if !ok {
			res.Flags.Set(FlagUnweighted)
			break
		}

		n11 := owInv.w11 - w.w11
		n12 := owInv.w12 - w.w12
		n22 := owInv.w22 - w.w22

		next, _, ok = solveWeights(n11, n12, n22)
		if !ok {
			// The product-of-Gaussians assumption broke down.
			res.Flags.Set(FlagUnweighted)
			break
		}

		sigma11W, sigma12W, sigma22W = next.w11, next.w12, next.w22

		if sigma11W <= 0 || sigma22W <= 0 {
			res.Flags.Set(FlagUnweighted)
			break
		}
	}

	if iter == maxIter {
		res.Flags.Set(FlagUnweighted)
		res.Flags.Set(FlagMaxIter)
	}
	if m.sumxx+m.sumyy == 0.0 {
		res.Flags.Set(FlagUnweighted)
	}

	// Problems; try the unweighted (top-hat) moments instead.
	if res.Flags.Has(FlagUnweighted) {
		var ok bool
		var err error
		i0, m, ok, err = calcMoments(img, xcen, ycen, bb, bkgd, interp, momentWeights{}, negative)
		if err != nil {
			return false, err
		}
		if !ok || (!negative && m.sum <= 0) || (negative && m.sum >= 0) {
			res.Flags.Set(FlagUnweightedBad)
			if m.sum > 0 {
				// Pretend the object is a single pixel.
				res.XX = 1 / 12.0
				res.XY = 0.0
				res.YY = 1 / 12.0
			}
			return false, nil
		}

		// Object ~= weight at this point.
		sigma11W = m.sumxx / m.sum
		sigma12W = m.sumxy / m.sum
		sigma22W = m.sumyy / m.sum
	}

	res.InstFlux = i0
	res.XX = sigma11W
	res.XY = sigma12W
	res.YY = sigma22W

	if res.XX+res.YY != 0.0 {
		ix := positionToIndex(xcen)
		iy := positionToIndex(ycen)

		if ix >= 0 && ix < img.Width() && iy >= 0 && iy < img.Height() {
			// Overestimate: the variance at the peak includes the object.
			bkgdVar := img.Variance(ix, iy)

			if bkgdVar > 0.0 { // NaN is not > 0.0
				if !res.Flags.Has(FlagUnweighted) {
					if err := fisherErrors(res, bkgdVar); err != nil {
						return false, err
					}
				}
			}
		}
	}

	return true, nil
}

// ComputeAdaptiveMoments measures flux, centroid and shape for the
// object near center (in parent coordinates). A failed measurement
// still returns a result: the flags say what went wrong, and the
// numeric fields are either the degenerate fallback or NaN sentinels.
//
// The returned error is non-nil only for the internal-invariant class
// of failure, which indicates a bug rather than bad data.
func ComputeAdaptiveMoments(img Accessor, cx, cy float64, negative bool, cfg Config) (MomentsResult, error) {
	// Work in local pixel coordinates.
	xcen := cx - float64(img.X0())
	ycen := cy - float64(img.Y0())

	res := newMomentsResult()

	ok, err := getAdaptiveMoments(img, cfg.Background, xcen, ycen, cfg.shiftMax(),
		&res, cfg.MaxIter, cfg.Tol1, cfg.Tol2, negative)
	if err != nil {
		if _, isInternal := err.(*InternalError); isInternal {
			return res, err
		}
		// Recoverable classes (bad weights, bounds) just fail the source.
		if cfg.Verbosity > 0 {
			log.Printf("adamom: measurement at (%.1f,%.1f) failed: %v\n", cx, cy, err)
		}
		res.Flags.Set(FlagFailure)
	} else if !ok {
		res.Flags.Set(FlagFailure)
	}

	if res.Flags.Has(FlagUnweighted) || res.Flags.Has(FlagShift) {
		// Some numbers came out, but they are not trustworthy.
		res.Flags.Set(FlagFailure)
	}

	ixxIyy := res.XX * res.YY
	ixySq := res.XY * res.XY
	const epsilon = 1.0e-6
	if ixxIyy < (1.0+epsilon)*ixySq {
		if !res.Flags.Has(FlagFailure) {
			return res, internalErrorf(
				"singular moments (xx*yy=%g vs xy^2=%g) without any flag set", ixxIyy, ixySq)
		}
	}

	// The loop measured the zeroth moment as a Gaussian amplitude;
	// scale to an integrated flux. The factor is the inverse of the
	// bivariate normal's normalization constant, i.e. twice the ellipse
	// area pi*sqrt(det).
	fluxScale := 2 * math.Pi * math.Sqrt(ixxIyy-ixySq)

	res.InstFlux *= fluxScale
	res.InstFluxErr *= fluxScale
	res.X += float64(img.X0())
	res.Y += float64(img.Y0())

	if img.HasVariance() {
		res.FluxXXCov *= fluxScale
		res.FluxYYCov *= fluxScale
		res.FluxXYCov *= fluxScale
	}

	return res, nil
}
