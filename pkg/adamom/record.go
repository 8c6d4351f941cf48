package adamom

import(
	"math"
	"strings"
)

// The result sink. A Schema allocates named fields once per algorithm
// instance; Records are the per-source key-value stores the
// measurements get written into. Field names are namespaced under the
// algorithm's prefix, joined with underscores.

type Schema struct {
	fields []string
	flags  []string
}

func NewSchema() *Schema { return &Schema{} }

func (s *Schema)Join(parts ...string) string { return strings.Join(parts, "_") }

func (s *Schema)AddField(name string) string {
	s.fields = append(s.fields, name)
	return name
}

func (s *Schema)AddFlag(name string) string {
	s.flags = append(s.flags, name)
	return name
}

func (s *Schema)Fields() []string { return s.fields }
func (s *Schema)Flags() []string  { return s.flags }

// A Record holds one source's measured values. Fields not yet written
// read back as NaN, flags as false.
type Record struct {
	vals  map[string]float64
	flags map[string]bool
}

func NewRecord() *Record {
	return &Record{vals: map[string]float64{}, flags: map[string]bool{}}
}

func (r *Record)Set(field string, v float64)   { r.vals[field] = v }
func (r *Record)SetFlag(field string, b bool)  { r.flags[field] = b }
func (r *Record)GetFlag(field string) bool     { return r.flags[field] }

func (r *Record)Get(field string) float64 {
	if v, exists := r.vals[field]; exists {
		return v
	}
	return math.NaN()
}

// A ResultKey remembers which schema fields one algorithm instance
// owns, so results can be written and read back without re-deriving
// names.
type ResultKey struct {
	name       string
	includePsf bool

	flux, fluxErr        string
	x, y                 string
	xx, yy, xy           string
	xxErr, yyErr, xyErr  string
	xxYyCov, xxXyCov, yyXyCov       string
	fluxXxCov, fluxYyCov, fluxXyCov string
	psfXx, psfYy, psfXy  string
	flagFields           [NumFlags]string
}

// AddFields registers every field this algorithm writes, under the
// given name prefix. PSF shape fields (and the psf flag) only exist
// when doMeasurePsf is set.
func AddFields(s *Schema, name string, doMeasurePsf bool) ResultKey {
	k := ResultKey{name: name, includePsf: doMeasurePsf}

	k.flux = s.AddField(s.Join(name, "instFlux"))
	k.fluxErr = s.AddField(s.Join(name, "instFluxErr"))
	k.x = s.AddField(s.Join(name, "x"))
	k.y = s.AddField(s.Join(name, "y"))
	k.xx = s.AddField(s.Join(name, "xx"))
	k.yy = s.AddField(s.Join(name, "yy"))
	k.xy = s.AddField(s.Join(name, "xy"))
	k.xxErr = s.AddField(s.Join(name, "xxErr"))
	k.yyErr = s.AddField(s.Join(name, "yyErr"))
	k.xyErr = s.AddField(s.Join(name, "xyErr"))
	k.xxYyCov = s.AddField(s.Join(name, "xx", "yy", "Cov"))
	k.xxXyCov = s.AddField(s.Join(name, "xx", "xy", "Cov"))
	k.yyXyCov = s.AddField(s.Join(name, "yy", "xy", "Cov"))
	k.fluxXxCov = s.AddField(s.Join(name, "instFlux", "xx", "Cov"))
	k.fluxYyCov = s.AddField(s.Join(name, "instFlux", "yy", "Cov"))
	k.fluxXyCov = s.AddField(s.Join(name, "instFlux", "xy", "Cov"))

	if doMeasurePsf {
		k.psfXx = s.AddField(s.Join(name, "psf", "xx"))
		k.psfYy = s.AddField(s.Join(name, "psf", "yy"))
		k.psfXy = s.AddField(s.Join(name, "psf", "xy"))
	}

	for f := Flag(0); f < NumFlags; f++ {
		if f == FlagPsfShapeBad && !doMeasurePsf {
			continue
		}
		k.flagFields[f] = s.AddFlag(s.Join(name, f.Name()))
	}

	return k
}

func (k ResultKey)Set(rec *Record, res MomentsResult) {
	rec.Set(k.flux, res.InstFlux)
	rec.Set(k.fluxErr, res.InstFluxErr)
	rec.Set(k.x, res.X)
	rec.Set(k.y, res.Y)
	rec.Set(k.xx, res.XX)
	rec.Set(k.yy, res.YY)
	rec.Set(k.xy, res.XY)
	rec.Set(k.xxErr, res.XXErr)
	rec.Set(k.yyErr, res.YYErr)
	rec.Set(k.xyErr, res.XYErr)
	rec.Set(k.xxYyCov, res.XXYYCov)
	rec.Set(k.xxXyCov, res.XXXYCov)
	rec.Set(k.yyXyCov, res.YYXYCov)
	rec.Set(k.fluxXxCov, res.FluxXXCov)
	rec.Set(k.fluxYyCov, res.FluxYYCov)
	rec.Set(k.fluxXyCov, res.FluxXYCov)

	for f := Flag(0); f < NumFlags; f++ {
		if f == FlagPsfShapeBad && !k.includePsf {
			continue
		}
		rec.SetFlag(k.flagFields[f], res.Flags.Has(f))
	}
}

func (k ResultKey)Get(rec *Record) MomentsResult {
	res := newMomentsResult()
	res.InstFlux = rec.Get(k.flux)
	res.InstFluxErr = rec.Get(k.fluxErr)
	res.X = rec.Get(k.x)
	res.Y = rec.Get(k.y)
	res.XX = rec.Get(k.xx)
	res.YY = rec.Get(k.yy)
	res.XY = rec.Get(k.xy)
	res.XXErr = rec.Get(k.xxErr)
	res.YYErr = rec.Get(k.yyErr)
	res.XYErr = rec.Get(k.xyErr)
	res.XXYYCov = rec.Get(k.xxYyCov)
	res.XXXYCov = rec.Get(k.xxXyCov)
	res.YYXYCov = rec.Get(k.yyXyCov)
	res.FluxXXCov = rec.Get(k.fluxXxCov)
	res.FluxYYCov = rec.Get(k.fluxYyCov)
	res.FluxXYCov = rec.Get(k.fluxXyCov)

	for f := Flag(0); f < NumFlags; f++ {
		if f == FlagPsfShapeBad && !k.includePsf {
			continue
		}
		if rec.GetFlag(k.flagFields[f]) {
			res.Flags.Set(f)
		}
	}
	return res
}

func (k ResultKey)SetPsfShape(rec *Record, q Quad) {
	rec.Set(k.psfXx, q.XX)
	rec.Set(k.psfYy, q.YY)
	rec.Set(k.psfXy, q.XY)
}

func (k ResultKey)GetPsfShape(rec *Record) Quad {
	return Quad{XX: rec.Get(k.psfXx), XY: rec.Get(k.psfXy), YY: rec.Get(k.psfYy)}
}

// SetFailure marks a record as failed when measurement aborted before
// producing any result at all.
func (k ResultKey)SetFailure(rec *Record) {
	rec.SetFlag(k.flagFields[FlagFailure], true)
}
