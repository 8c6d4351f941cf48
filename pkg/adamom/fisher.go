package adamom

import(
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// calcFisher builds the 4x4 Fisher information matrix of the
// least-squares fit of an elliptical Gaussian, over the parameters
// (flux amplitude, xx, yy, xy). Following Numerical Recipes section
// 15.5 the second-derivative terms are dropped, so the matrix is an
// analytic function of the best-fit parameters and the background
// variance alone.
func calcFisher(res *MomentsResult, bkgdVar float64) (*mat.SymDense, error) {
	A := res.InstFlux // amplitude; converted to a flux later
	sigma11W := res.XX
	sigma12W := res.XY
	sigma22W := res.YY

	D := sigma11W*sigma22W - sigma12W*sigma12W

	if D <= 2.220446049250313e-16 {
		return nil, fmt.Errorf("%w: determinant %g too small for Fisher matrix", ErrSingular, D)
	}
	if bkgdVar <= 0.0 {
		return nil, fmt.Errorf("background variance must be positive (saw %g)", bkgdVar)
	}

	F := math.Pi * math.Sqrt(D) / bkgdVar

	fisher := mat.NewSymDense(4, nil)

	fac := F * A / (4.0 * D)
	fisher.SetSym(0, 0, F)
	fisher.SetSym(0, 1, fac*sigma22W)
	fisher.SetSym(0, 2, fac*sigma11W)
	fisher.SetSym(0, 3, -fac*2*sigma12W)

	fac = 3.0 * F * A * A / (16.0 * D * D)
	fisher.SetSym(1, 1, fac*sigma22W*sigma22W)
	fisher.SetSym(2, 2, fac*sigma11W*sigma11W)
	fisher.SetSym(3, 3, fac*4.0*(sigma12W*sigma12W+D/3.0))

	fisher.SetSym(1, 2, fisher.At(3, 3)/4.0)
	fisher.SetSym(1, 3, fac*(-2*sigma22W*sigma12W))
	fisher.SetSym(2, 3, fac*(-2*sigma11W*sigma12W))

	return fisher, nil
}

// fisherErrors inverts the Fisher matrix into the covariance of
// (flux, xx, yy, xy) and writes the error terms into res. A
// near-singular Fisher matrix is reported as an error, never silently
// zeroed.
func fisherErrors(res *MomentsResult, bkgdVar float64) error {
	fisher, err := calcFisher(res, bkgdVar)
	if err != nil {
		return err
	}

	var cov mat.Dense
	if err := cov.Inverse(fisher); err != nil {
		return fmt.Errorf("inverting Fisher matrix: %v", err)
	}

	res.InstFluxErr = math.Sqrt(cov.At(0, 0))
	res.XXErr = math.Sqrt(cov.At(1, 1))
	res.YYErr = math.Sqrt(cov.At(2, 2))
	res.XYErr = math.Sqrt(cov.At(3, 3))
	res.FluxXXCov = cov.At(0, 1)
	res.FluxYYCov = cov.At(0, 2)
	res.FluxXYCov = cov.At(0, 3)
	res.XXYYCov = cov.At(1, 2)
	res.XXXYCov = cov.At(1, 3)
	res.YYXYCov = cov.At(2, 3)

	return nil
}
