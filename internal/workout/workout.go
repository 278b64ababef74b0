package workout

import (
	"github.com/google/uuid"
)

// Workout is the evolving structured representation of one reported workout.
// Extraction creates it, validation annotates it, normalization may replace it
// wholesale. Exactly one pipeline stage owns it at a time.
type Workout struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"user_id"`

	Discipline string `json:"discipline"`
	Title      string `json:"title,omitempty"`
	Date       string `json:"date,omitempty"` // YYYY-MM-DD, model-reported, corrected by validation

	Exercises []Exercise `json:"exercises,omitempty"`
	Rounds    []Round    `json:"rounds,omitempty"`
	Segments  []Segment  `json:"segments,omitempty"`
	Stations  []Station  `json:"stations,omitempty"`

	DurationMinutes   float64 `json:"duration_minutes,omitempty"`
	PerceivedExertion float64 `json:"perceived_exertion,omitempty"` // RPE, 1-10
	Intensity         float64 `json:"intensity,omitempty"`          // 1-10
	Notes             string  `json:"notes,omitempty"`

	// Free-form per-discipline payload (metcon scores, splits, grades...).
	DisciplineSpecific map[string]any `json:"discipline_specific,omitempty"`

	Confidence   float64  `json:"confidence"`
	Completeness float64  `json:"completeness"`
	Flags        []string `json:"flags,omitempty"`

	GenerationMethod string `json:"generation_method,omitempty"` // "tool" or "fallback"
}

// Exercise is one movement with its sets.
type Exercise struct {
	Name  string `json:"name"`
	Sets  []Set  `json:"sets,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Set is one performed set of an exercise.
type Set struct {
	Reps            int     `json:"reps,omitempty"`
	WeightLbs       float64 `json:"weight_lbs,omitempty"`
	DistanceMeters  float64 `json:"distance_meters,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	RestSeconds     float64 `json:"rest_seconds,omitempty"`
}

// Round groups exercises for circuit-style work (AMRAP, EMOM, rounds-for-time).
type Round struct {
	Number    int        `json:"number,omitempty"`
	Exercises []Exercise `json:"exercises,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// Segment is a continuous endurance block (run interval, swim set, ride leg).
type Segment struct {
	Activity        string  `json:"activity,omitempty"`
	DurationMinutes float64 `json:"duration_minutes,omitempty"`
	DistanceMeters  float64 `json:"distance_meters,omitempty"`
	Pace            string  `json:"pace,omitempty"`
}

// Station is one stop in station-based conditioning work.
type Station struct {
	Name        string  `json:"name"`
	WorkSeconds float64 `json:"work_seconds,omitempty"`
	RestSeconds float64 `json:"rest_seconds,omitempty"`
}

// HasStructure reports whether any exercise/activity structure is present at all.
func (w *Workout) HasStructure() bool {
	return len(w.Exercises) > 0 || len(w.Rounds) > 0 || len(w.Segments) > 0 || len(w.Stations) > 0
}

// ExerciseCount counts distinct movements across all structure shapes.
func (w *Workout) ExerciseCount() int {
	n := len(w.Exercises)
	for _, r := range w.Rounds {
		n += len(r.Exercises)
	}
	n += len(w.Segments)
	n += len(w.Stations)
	return n
}
