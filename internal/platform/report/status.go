package report

import "strings"

// Fitness is the three-way occupational fitness classification derived from
// the free-text status of an MCU result.
type Fitness int

const (
	FitnessFit Fitness = iota
	FitnessCautionary
	FitnessUnfit
)

func (f Fitness) String() string {
	switch f {
	case FitnessCautionary:
		return "cautionary"
	case FitnessUnfit:
		return "unfit"
	default:
		return "fit"
	}
}

// RGB is a 24-bit color.
type RGB struct {
	R, G, B int
}

// Status block colors. The text is always rendered white on the fill.
var (
	fitFill        = RGB{16, 185, 129}
	cautionaryFill = RGB{234, 179, 8}
	unfitFill      = RGB{239, 68, 68}
)

// Fill returns the status block background color for the classification.
func (f Fitness) Fill() RGB {
	switch f {
	case FitnessCautionary:
		return cautionaryFill
	case FitnessUnfit:
		return unfitFill
	default:
		return fitFill
	}
}

// Classify derives the fitness classification from free-text status. It is
// pure and total: any string maps to exactly one bucket, defaulting to fit
// when no keyword matches. The predicates are an ordered chain evaluated by
// case-insensitive substring match; the cautionary check runs before the
// unfit check, matching the source data conventions, and both run before the
// fit default so a status containing both "UNFIT TO WORK" and "FIT" is
// classified unfit.
func Classify(status string) Fitness {
	upper := strings.ToUpper(status)
	switch {
	case strings.Contains(upper, "FIT TO WORK WITH NOTE") || strings.Contains(upper, "CATATAN"):
		return FitnessCautionary
	case strings.Contains(upper, "UNFIT TO WORK") || strings.Contains(upper, "TIDAK FIT"):
		return FitnessUnfit
	default:
		return FitnessFit
	}
}

// EffectiveStatus resolves the status text used for display and
// classification: the primary status field wins, the resume field is the
// fallback used when the primary is empty or whitespace.
func EffectiveStatus(kriteriaStatus, statusResume string) string {
	if s := strings.TrimSpace(kriteriaStatus); s != "" {
		return s
	}
	return strings.TrimSpace(statusResume)
}
