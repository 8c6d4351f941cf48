package adamom

// A Flag records one way an adaptive-moments measurement can go wrong.
// Flags are only ever raised during a measurement, never cleared, so a
// result carries the full history of what happened to it.
type Flag uint

const (
	// FlagFailure is the umbrella flag; it is derived from the others
	// once the measurement completes.
	FlagFailure Flag = iota

	// FlagUnweightedBad means both the weighted and the unweighted
	// moments were invalid; the result shape is a sentinel.
	FlagUnweightedBad

	// FlagUnweighted means the weighted moments converged to an invalid
	// value, and the result comes from unweighted (top-hat) moments.
	FlagUnweighted

	// FlagShift means the measured centroid moved further from the
	// initial estimate than the configured maximum.
	FlagShift

	// FlagMaxIter means the iteration cap was hit before convergence.
	FlagMaxIter

	// FlagPsfShapeBad means the PSF model shape at the object position
	// could not be measured. The object measurement itself is unaffected.
	FlagPsfShapeBad

	NumFlags
)

var flagNames = []string{
	FlagFailure:       "flag",
	FlagUnweightedBad: "flag_unweightedBad",
	FlagUnweighted:    "flag_unweighted",
	FlagShift:         "flag_shift",
	FlagMaxIter:       "flag_maxIter",
	FlagPsfShapeBad:   "flag_psf",
}

func (f Flag)Name() string { return flagNames[f] }

// A FlagSet is a fixed little bitset over the Flags above.
type FlagSet uint8

func (fs *FlagSet)Set(f Flag)     { *fs |= 1 << f }
func (fs FlagSet)Has(f Flag) bool { return fs&(1<<f) != 0 }
func (fs FlagSet)Any() bool       { return fs != 0 }

func (fs FlagSet)String() string {
	if fs == 0 {
		return "[]"
	}
	str := "["
	for f := Flag(0); f < NumFlags; f++ {
		if fs.Has(f) {
			if len(str) > 1 {
				str += ","
			}
			str += flagNames[f]
		}
	}
	return str + "]"
}
