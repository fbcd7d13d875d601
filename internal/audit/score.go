package audit

import "math"

// Score weights, in points out of 10.
const (
	maxScore        = 10.0
	criticalPenalty = 2.0
	warningPenalty  = 0.5
)

// Score maps finding counts to a value in [0, 10], rounded to one decimal.
// A page that produced no findings at all scores 0.
func Score(critical, warnings, passed int) float64 {
	if critical+warnings+passed == 0 {
		return 0
	}
	raw := maxScore - criticalPenalty*float64(critical) - warningPenalty*float64(warnings)
	raw = max(0, min(maxScore, raw))
	return math.Round(raw*10) / 10
}

// Rating is the human label shown next to a score.
func Rating(score float64) string {
	switch {
	case score >= 8:
		return "Excellent"
	case score >= 6:
		return "Good"
	case score >= 4:
		return "Needs Work"
	default:
		return "Poor"
	}
}
