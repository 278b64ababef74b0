// Package validation holds the pure scoring and correction heuristics behind
// workout completeness validation: field-coverage scoring, implausible-date
// correction and exercise-structure detection.
package validation

import (
	"github.com/formacoach/tally/internal/workout"
)

// HardFloor is the completeness below which a candidate always blocks,
// regardless of any other flag.
const HardFloor = 0.2

// CompletenessScore measures field coverage of a candidate, weighted by what
// the discipline class actually requires. Qualitative disciplines earn most
// of their score from having done the activity at all.
func CompletenessScore(w *workout.Workout) float64 {
	if w == nil {
		return 0
	}

	if workout.IsQualitative(w.Discipline) {
		return qualitativeScore(w)
	}
	return quantitativeScore(w)
}

func quantitativeScore(w *workout.Workout) float64 {
	score := 0.0
	if w.Discipline != "" {
		score += 0.15
	}

	// Without any activity structure only the discipline counts. Dates and
	// effort ratings get defaulted upstream, so metadata alone must never
	// clear the hard floor.
	if !w.HasStructure() {
		return clamp(score)
	}
	score += 0.25

	if w.Date != "" {
		score += 0.10
	}
	if hasSetDetail(w) {
		score += 0.25
	}
	if w.DurationMinutes > 0 {
		score += 0.10
	}
	if w.PerceivedExertion > 0 || w.Intensity > 0 {
		score += 0.10
	}
	if w.Notes != "" || len(w.DisciplineSpecific) > 0 {
		score += 0.05
	}
	return clamp(score)
}

func qualitativeScore(w *workout.Workout) float64 {
	score := 0.0
	if w.Discipline != "" {
		score += 0.20
	}
	if w.Date != "" {
		score += 0.15
	}
	if w.HasStructure() || w.DurationMinutes > 0 {
		score += 0.35
	}
	if w.PerceivedExertion > 0 || w.Intensity > 0 {
		score += 0.15
	}
	if w.Notes != "" || len(w.DisciplineSpecific) > 0 {
		score += 0.15
	}
	return clamp(score)
}

// hasSetDetail reports whether any set, segment or station carries a real
// measurement (reps, load, distance, time).
func hasSetDetail(w *workout.Workout) bool {
	for _, ex := range w.Exercises {
		if setDetail(ex.Sets) {
			return true
		}
	}
	for _, r := range w.Rounds {
		for _, ex := range r.Exercises {
			if setDetail(ex.Sets) {
				return true
			}
		}
	}
	for _, s := range w.Segments {
		if s.DurationMinutes > 0 || s.DistanceMeters > 0 {
			return true
		}
	}
	for _, s := range w.Stations {
		if s.WorkSeconds > 0 {
			return true
		}
	}
	return false
}

func setDetail(sets []workout.Set) bool {
	for _, s := range sets {
		if s.Reps > 0 || s.WeightLbs > 0 || s.DistanceMeters > 0 || s.DurationSeconds > 0 {
			return true
		}
	}
	return false
}

// ConfidenceScore blends the extractor's self-reported confidence with the
// discipline detector's, penalising unknown disciplines. The model's own
// number is a signal, not an answer.
func ConfidenceScore(w *workout.Workout, detectConfidence float64) float64 {
	base := w.Confidence
	if base <= 0 {
		base = 0.5
	}
	score := base*0.7 + detectConfidence*0.3
	if !workout.IsKnown(w.Discipline) {
		score -= 0.2
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
