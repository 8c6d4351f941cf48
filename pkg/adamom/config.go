package adamom

import(
	"log"

	"gopkg.in/yaml.v2"
)

// Config holds the tuning knobs for the adaptive moments measurement.
type Config struct {
	Verbosity    int

	Background   float64 // Additional background to subtract from every pixel
	MaxIter      int     // Iteration cap for the adaptive loop
	MaxShift     float64 // Max allowed centroid shift, in pixels (clamped into [2,10] at use)
	Tol1         float64 // Convergence tolerance on the ellipticities e1, e2
	Tol2         float64 // Convergence tolerance on the relative change in sigma11

	DoMeasurePsf bool    // Also record the PSF model shape at the object position
}

func NewConfig() Config {
	return Config{
		Background:   0.0,
		MaxIter:      100,
		MaxShift:     0.0,
		Tol1:         1e-5,
		Tol2:         1e-4,
		DoMeasurePsf: true,
	}
}

func NewConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// shiftMax returns the centroid shift limit actually applied. The
// configured value is clamped into [2,10] unconditionally; results
// downstream depend on this exact behavior, so leave it alone.
func (c Config)shiftMax() float64 {
	if c.MaxShift < 2 {
		return 2
	} else if c.MaxShift > 10 {
		return 10
	}
	return c.MaxShift
}
