package adamom

import(
	"fmt"
	"math"
	"testing"
)

type fixedPsf struct {
	q   Quad
	err error
}

func (p fixedPsf)ShapeAt(x, y float64) (Quad, error) { return p.q, p.err }

type brokenCentroids struct{}

func (brokenCentroids)Centroid(*Record) (float64, float64, error) {
	return 0, 0, fmt.Errorf("upstream centroider gave up")
}

func TestAlgorithmMeasure(t *testing.T) {
	img := newTestFrame(21, 21).withVariance(1.0)
	img.addGaussian(10, 10, 1000, 4, 0, 4)

	cfg := NewConfig()
	schema := NewSchema()
	psf := fixedPsf{q: Quad{XX: 2, XY: 0, YY: 2}}
	alg := NewAlgorithm(cfg, "shape", schema, FixedCentroid{X: 10, Y: 10}, psf)

	rec := NewRecord()
	if err := alg.Measure(img, rec); err != nil {
		t.Fatalf("Measure: %v", err)
	}

	res := alg.Key().Get(rec)
	if res.Flags.Any() {
		t.Fatalf("flags raised: %s", res.Flags)
	}
	if !near(res.XX, 4.0, 0.02) {
		t.Errorf("xx = %g, want ~4", res.XX)
	}
	if got := alg.Key().GetPsfShape(rec); got != psf.q {
		t.Errorf("psf shape = %+v, want %+v", got, psf.q)
	}
}

func TestAlgorithmMeasureNegativeSource(t *testing.T) {
	img := newTestFrame(21, 21).withVariance(1.0)
	img.addGaussian(10, 10, -1000, 4, 0, 4)

	cfg := NewConfig()
	cfg.DoMeasurePsf = false
	schema := NewSchema()
	alg := NewAlgorithm(cfg, "shape", schema, FixedCentroid{X: 10, Y: 10}, nil)

	rec := NewRecord()
	rec.SetFlag(NegativeField, true)
	if err := alg.Measure(img, rec); err != nil {
		t.Fatalf("Measure: %v", err)
	}

	res := alg.Key().Get(rec)
	if res.Flags.Any() {
		t.Fatalf("flags raised on a clean dip: %s", res.Flags)
	}
	if !near(res.XX, 4.0, 0.02) {
		t.Errorf("dip xx = %g, want ~4", res.XX)
	}
	if res.InstFlux >= 0 {
		t.Errorf("dip flux = %g, want negative", res.InstFlux)
	}
}

// A bad PSF model degrades the psf flag, not the whole measurement.
func TestAlgorithmPsfShapeBad(t *testing.T) {
	img := newTestFrame(21, 21).withVariance(1.0)
	img.addGaussian(10, 10, 1000, 4, 0, 4)

	cfg := NewConfig()
	schema := NewSchema()
	psf := fixedPsf{err: fmt.Errorf("no PSF model here")}
	alg := NewAlgorithm(cfg, "shape", schema, FixedCentroid{X: 10, Y: 10}, psf)

	rec := NewRecord()
	if err := alg.Measure(img, rec); err != nil {
		t.Fatalf("Measure: %v", err)
	}

	res := alg.Key().Get(rec)
	if !res.Flags.Has(FlagPsfShapeBad) {
		t.Errorf("psf flag not set: %s", res.Flags)
	}
	if res.Flags.Has(FlagFailure) {
		t.Errorf("psf trouble should not fail the shape measurement: %s", res.Flags)
	}
	if !near(res.XX, 4.0, 0.02) {
		t.Errorf("xx = %g, want ~4 despite psf trouble", res.XX)
	}
}

func TestAlgorithmNilPsfModel(t *testing.T) {
	img := newTestFrame(21, 21)
	img.addGaussian(10, 10, 1000, 4, 0, 4)

	schema := NewSchema()
	alg := NewAlgorithm(NewConfig(), "shape", schema, FixedCentroid{X: 10, Y: 10}, nil)

	rec := NewRecord()
	if err := alg.Measure(img, rec); err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if !alg.Key().Get(rec).Flags.Has(FlagPsfShapeBad) {
		t.Errorf("missing PSF model should flag the psf shape")
	}
}

func TestAlgorithmNoCentroid(t *testing.T) {
	img := newTestFrame(21, 21)

	schema := NewSchema()
	alg := NewAlgorithm(NewConfig(), "shape", schema, brokenCentroids{}, nil)

	rec := NewRecord()
	if err := alg.Measure(img, rec); err == nil {
		t.Fatalf("Measure with no centroid should error")
	}
	res := alg.Key().Get(rec)
	if !res.Flags.Has(FlagFailure) {
		t.Errorf("no-centroid failure should flag the record")
	}
	if !math.IsNaN(res.XX) {
		t.Errorf("no-centroid record has xx = %g, want unset", res.XX)
	}
}

func TestFlagSetString(t *testing.T) {
	var fs FlagSet
	if fs.String() != "[]" {
		t.Errorf("empty flag set prints %q", fs.String())
	}
	fs.Set(FlagFailure)
	fs.Set(FlagShift)
	if got := fs.String(); got != "[flag,flag_shift]" {
		t.Errorf("flag set prints %q", got)
	}
}
