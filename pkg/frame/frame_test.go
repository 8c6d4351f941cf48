package frame

import(
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSetGet(t *testing.T) {
	f := New(10, 6)
	if f.Width() != 10 || f.Height() != 6 {
		t.Fatalf("geometry %dx%d, want 10x6", f.Width(), f.Height())
	}

	f.Set(3, 4, 17.5)
	if got := f.Value(3, 4); got != 17.5 {
		t.Errorf("Value(3,4) = %g, want 17.5", got)
	}
	if got := f.Value(4, 3); got != 0 {
		t.Errorf("Value(4,3) = %g, want 0", got)
	}
}

func TestOrigin(t *testing.T) {
	f := New(4, 4)
	if f.X0() != 0 || f.Y0() != 0 {
		t.Errorf("fresh frame origin (%d,%d), want (0,0)", f.X0(), f.Y0())
	}
	f.SetOrigin(100, -20)
	if f.X0() != 100 || f.Y0() != -20 {
		t.Errorf("origin (%d,%d), want (100,-20)", f.X0(), f.Y0())
	}
}

func TestVariancePlane(t *testing.T) {
	f := New(5, 5)
	if f.HasVariance() {
		t.Errorf("fresh frame claims variance data")
	}
	if !math.IsNaN(f.Variance(2, 2)) {
		t.Errorf("variance without a plane = %g, want NaN", f.Variance(2, 2))
	}

	f.SetVariance(2, 2, 3.5)
	if !f.HasVariance() {
		t.Errorf("SetVariance did not create the plane")
	}
	if got := f.Variance(2, 2); got != 3.5 {
		t.Errorf("Variance(2,2) = %g, want 3.5", got)
	}
	if got := f.Variance(0, 0); got != 0 {
		t.Errorf("Variance(0,0) = %g, want 0", got)
	}

	f.FillVariance(1.25)
	if got := f.Variance(4, 4); got != 1.25 {
		t.Errorf("FillVariance: Variance(4,4) = %g, want 1.25", got)
	}
}

func TestSynthesizeVariance(t *testing.T) {
	f := New(3, 1)
	f.Set(0, 0, 400)
	f.Set(1, 0, 0)
	f.Set(2, 0, -50) // negative pixels contribute no shot noise

	f.SynthesizeVariance(4.0, 10.0)
	if got := f.Variance(0, 0); got != 400/4.0+100 {
		t.Errorf("Variance(0,0) = %g, want 200", got)
	}
	if got := f.Variance(1, 0); got != 100 {
		t.Errorf("Variance(1,0) = %g, want 100", got)
	}
	if got := f.Variance(2, 0); got != 100 {
		t.Errorf("Variance(2,0) = %g, want 100", got)
	}
}

func TestAddGaussian(t *testing.T) {
	f := New(41, 41)
	if err := f.AddGaussian(20, 20, 1000, 4, 0, 4); err != nil {
		t.Fatalf("AddGaussian: %v", err)
	}

	if got := f.Value(20, 20); math.Abs(got-1000) > 1e-9 {
		t.Errorf("peak = %g, want 1000", got)
	}

	// Total counts of a 2D Gaussian: amp * 2*pi*sqrt(det).
	sum := 0.0
	for y := 0; y < 41; y++ {
		for x := 0; x < 41; x++ {
			sum += f.Value(x, y)
		}
	}
	want := 1000 * 2 * math.Pi * 4
	if math.Abs(sum/want-1) > 0.01 {
		t.Errorf("total counts %g, want ~%g", sum, want)
	}

	// Injection accumulates rather than overwrites.
	if err := f.AddGaussian(20, 20, 1000, 4, 0, 4); err != nil {
		t.Fatalf("AddGaussian: %v", err)
	}
	if got := f.Value(20, 20); math.Abs(got-2000) > 1e-9 {
		t.Errorf("stacked peak = %g, want 2000", got)
	}
}

func TestAddGaussianDegenerate(t *testing.T) {
	f := New(10, 10)
	if err := f.AddGaussian(5, 5, 100, 1, 1, 1); err == nil {
		t.Errorf("degenerate shape accepted")
	}
	if err := f.AddGaussian(5, 5, 100, -1, 0, 1); err == nil {
		t.Errorf("negative covariance accepted")
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewGray16(image.Rect(10, 20, 14, 23))
	img.SetGray16(11, 21, color.Gray16{Y: 0x8000})

	f := FromImage(img)
	if f.Width() != 4 || f.Height() != 3 {
		t.Fatalf("geometry %dx%d, want 4x3", f.Width(), f.Height())
	}
	if f.X0() != 10 || f.Y0() != 20 {
		t.Errorf("origin (%d,%d), want (10,20)", f.X0(), f.Y0())
	}

	// Gray pixels get the full luminance weight sum (0.9999).
	want := float64(0x8000) * (0.2989 + 0.5870 + 0.1140)
	if got := f.Value(1, 1); math.Abs(got-want) > 1e-6 {
		t.Errorf("Value(1,1) = %g, want %g", got, want)
	}
	if got := f.Value(0, 0); got != 0 {
		t.Errorf("Value(0,0) = %g, want 0", got)
	}
}

func TestLoadPNG(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 5, 4))
	img.SetGray16(2, 1, color.Gray16{Y: 0x4000})

	name := filepath.Join(t.TempDir(), "tiny.png")
	out, err := os.Create(name)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if err := png.Encode(out, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	out.Close()

	f, err := Load(name)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Width() != 5 || f.Height() != 4 {
		t.Fatalf("geometry %dx%d, want 5x4", f.Width(), f.Height())
	}
	want := float64(0x4000) * (0.2989 + 0.5870 + 0.1140)
	if got := f.Value(2, 1); math.Abs(got-want) > 1e-6 {
		t.Errorf("Value(2,1) = %g, want %g", got, want)
	}
	if got := f.Value(0, 0); got != 0 {
		t.Errorf("Value(0,0) = %g, want 0", got)
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	if _, err := Load("whatever.fits"); err == nil {
		t.Errorf("unsupported extension accepted")
	}
}

func TestStats(t *testing.T) {
	f := New(8, 8)
	f.Set(1, 1, -3)
	f.Set(2, 2, 42)
	s := f.Stats()
	if s == "" {
		t.Errorf("empty stats string")
	}
}
