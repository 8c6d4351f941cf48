// Package adamom measures the flux, centroid and shape of an
// astronomical source by the adaptive moments method: the second
// moments of the object are computed under an elliptical Gaussian
// weight, and the weight is iteratively matched to the object until
// the two agree. Errors come from a closed-form Fisher matrix.
package adamom

import "math"

// An Accessor is the read-only pixel capability the measurement core
// works against. Concrete frame types implement it once; the numeric
// code never sees pixel representations. Coordinates handed to Value
// and Variance are local (0..Width-1, 0..Height-1); X0/Y0 give the
// frame's origin offset in parent coordinates.
type Accessor interface {
	Value(x, y int) float64
	Variance(x, y int) float64
	HasVariance() bool
	Width() int
	Height() int
	X0() int
	Y0() int
}

// A Quad is a second-moment (quadrupole) tensor, in pixel coordinates.
type Quad struct {
	XX, XY, YY float64
}

func (q Quad)Det() float64 { return q.XX*q.YY - q.XY*q.XY }

// A CentroidResult is a refined object position, in parent coordinates.
type CentroidResult struct {
	X, Y float64
}

// A ShapeResult is the measured quadrupole plus its uncertainties.
type ShapeResult struct {
	Quad
	XXErr, XYErr, YYErr       float64
	XXYYCov, XXXYCov, YYXYCov float64
}

// A FluxResult is an instrumental flux plus its uncertainty.
type FluxResult struct {
	InstFlux    float64
	InstFluxErr float64
}

// A MomentsResult aggregates everything one adaptive-moments
// measurement produces. Plain struct composition; there is no behavior
// hiding in the embedding.
type MomentsResult struct {
	FluxResult
	CentroidResult
	ShapeResult

	// Covariances between the flux and each shape component.
	FluxXXCov, FluxYYCov, FluxXYCov float64

	Flags FlagSet

	// Fourth-order weighted moment. Accumulated for interface
	// compatibility; nothing in this package consumes it.
	Sums4 float64
}

func newMomentsResult() MomentsResult {
	nan := math.NaN()
	return MomentsResult{
		FluxResult:     FluxResult{nan, nan},
		CentroidResult: CentroidResult{nan, nan},
		ShapeResult: ShapeResult{
			Quad:    Quad{nan, nan, nan},
			XXErr:   nan, XYErr: nan, YYErr: nan,
			XXYYCov: nan, XXXYCov: nan, YYXYCov: nan,
		},
		FluxXXCov: nan,
		FluxYYCov: nan,
		FluxXYCov: nan,
	}
}
