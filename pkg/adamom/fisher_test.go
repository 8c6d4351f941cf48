package adamom

import(
	"errors"
	"math"
	"testing"
)

func TestFisherErrorsHealthy(t *testing.T) {
	res := newMomentsResult()
	res.InstFlux = 1000
	res.XX, res.YY, res.XY = 4, 4, 0

	if err := fisherErrors(&res, 1.0); err != nil {
		t.Fatalf("fisherErrors: %v", err)
	}

	for name, v := range map[string]float64{
		"instFluxErr": res.InstFluxErr,
		"xxErr":       res.XXErr,
		"yyErr":       res.YYErr,
		"xyErr":       res.XYErr,
	} {
		if math.IsNaN(v) || v <= 0 {
			t.Errorf("%s = %g, want positive", name, v)
		}
	}

	// A circular source can't tell xx from yy apart.
	if !nearRel(res.XXErr, res.YYErr, 1e-9) {
		t.Errorf("xxErr %g != yyErr %g on a circular shape", res.XXErr, res.YYErr)
	}
	if !nearRel(res.FluxXXCov, res.FluxYYCov, 1e-9) {
		t.Errorf("fluxXxCov %g != fluxYyCov %g on a circular shape", res.FluxXXCov, res.FluxYYCov)
	}
}

// A noisier background means a less certain measurement, linearly in
// the error (the Fisher matrix scales as 1/variance).
func TestFisherErrorsScaleWithNoise(t *testing.T) {
	quiet := newMomentsResult()
	quiet.InstFlux = 1000
	quiet.XX, quiet.YY, quiet.XY = 4, 4, 0
	noisy := quiet

	if err := fisherErrors(&quiet, 1.0); err != nil {
		t.Fatalf("fisherErrors: %v", err)
	}
	if err := fisherErrors(&noisy, 4.0); err != nil {
		t.Fatalf("fisherErrors: %v", err)
	}
	if !nearRel(noisy.InstFluxErr, 2*quiet.InstFluxErr, 1e-9) {
		t.Errorf("4x variance should double the flux error: %g vs %g", noisy.InstFluxErr, quiet.InstFluxErr)
	}
}

func TestFisherErrorsDegenerate(t *testing.T) {
	res := newMomentsResult()
	res.InstFlux = 1000
	res.XX, res.YY, res.XY = 1, 1, 1 // det 0

	if err := fisherErrors(&res, 1.0); !errors.Is(err, ErrSingular) {
		t.Errorf("degenerate shape: err = %v, want ErrSingular", err)
	}
	if !math.IsNaN(res.XXErr) {
		t.Errorf("failed Fisher inversion wrote xxErr = %g", res.XXErr)
	}
}

func TestFisherErrorsBadVariance(t *testing.T) {
	res := newMomentsResult()
	res.InstFlux = 1000
	res.XX, res.YY, res.XY = 4, 4, 0

	if err := fisherErrors(&res, 0.0); err == nil {
		t.Errorf("zero background variance accepted")
	}
	if err := fisherErrors(&res, -1.0); err == nil {
		t.Errorf("negative background variance accepted")
	}
}
