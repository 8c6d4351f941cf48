package adamom

import(
	"fmt"
	"log"
)

// A CentroidProvider supplies the initial position estimate for a
// source, in parent coordinates. It may consult the record (e.g. an
// upstream centroider's fields) and may itself conclude no valid
// centroid exists.
type CentroidProvider interface {
	Centroid(rec *Record) (x, y float64, err error)
}

// A PsfModel can report the PSF shape at a position. Only consulted
// when Config.DoMeasurePsf is set.
type PsfModel interface {
	ShapeAt(x, y float64) (Quad, error)
}

// NegativeField is the optional per-source flag field naming sources
// that are dips rather than peaks (e.g. difference-image sources).
const NegativeField = "is_negative"

// An Algorithm is one configured adaptive-moments measurement plugin:
// fields registered once up front, then Measure called per source.
type Algorithm struct {
	cfg       Config
	key       ResultKey
	centroids CentroidProvider
	psf       PsfModel
}

func NewAlgorithm(cfg Config, name string, schema *Schema, centroids CentroidProvider, psf PsfModel) *Algorithm {
	return &Algorithm{
		cfg:       cfg,
		key:       AddFields(schema, name, cfg.DoMeasurePsf),
		centroids: centroids,
		psf:       psf,
	}
}

func (a *Algorithm)Key() ResultKey { return a.key }

// Measure runs the adaptive moments measurement for one source and
// writes the result into rec. Data-quality failures come back as flags
// on the record, not as errors; a returned error means either no
// usable centroid, or an internal invariant violation.
func (a *Algorithm)Measure(img Accessor, rec *Record) error {
	cx, cy, err := a.centroids.Centroid(rec)
	if err != nil {
		a.key.SetFailure(rec)
		return fmt.Errorf("no centroid for source: %v", err)
	}

	negative := rec.GetFlag(NegativeField)

	res, err := ComputeAdaptiveMoments(img, cx, cy, negative, a.cfg)
	if err != nil {
		// Internal invariant violations must surface, not soak into flags.
		return err
	}

	if a.cfg.DoMeasurePsf {
		if a.psf == nil {
			res.Flags.Set(FlagPsfShapeBad)
		} else if q, err := a.psf.ShapeAt(res.X, res.Y); err != nil {
			if a.cfg.Verbosity > 0 {
				log.Printf("adamom: PSF shape at (%.1f,%.1f) failed: %v\n", res.X, res.Y, err)
			}
			res.Flags.Set(FlagPsfShapeBad)
		} else {
			a.key.SetPsfShape(rec, q)
		}
	}

	a.key.Set(rec, res)
	return nil
}

// FixedCentroid is the trivial CentroidProvider: a known position.
type FixedCentroid struct {
	X, Y float64
}

func (c FixedCentroid)Centroid(*Record) (float64, float64, error) { return c.X, c.Y, nil }
