package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/formacoach/tally/internal/anthropic"
	"github.com/formacoach/tally/internal/workout"
)

// Source is how the inbound message reached the agent. Explicit logging
// commands get the lenient blocking set; free natural language the strict one.
type Source string

const (
	SourceCommand Source = "command"
	SourceNatural Source = "natural"
)

// RunInput configures one Extraction Run for one inbound message.
type RunInput struct {
	UserID     string
	Message    string
	Source     Source
	Now        time.Time // temporal context for date correction; zero means time.Now
	TemplateID string    // set when the message came from a training-program template
}

// RunResult is the caller-facing outcome of a run.
type RunResult struct {
	Success       bool             `json:"success"`
	WorkoutID     string           `json:"workout_id,omitempty"`
	Discipline    string           `json:"discipline,omitempty"`
	Confidence    float64          `json:"confidence,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	BlockingFlags []string         `json:"blocking_flags,omitempty"`
	AllWorkouts   []WorkoutOutcome `json:"all_workouts,omitempty"`
}

// WorkoutOutcome is one workout's fate in a multi-workout message.
type WorkoutOutcome struct {
	WorkoutID  string `json:"workout_id,omitempty"`
	Discipline string `json:"discipline,omitempty"`
	Saved      bool   `json:"saved"`
}

// Verdict is the validation tool's decision. Once produced it is
// authoritative: no later stage may override ShouldSave=false.
type Verdict struct {
	ShouldSave      bool     `json:"should_save"`
	ShouldNormalize bool     `json:"should_normalize"`
	Confidence      float64  `json:"confidence"`
	Completeness    float64  `json:"completeness"`
	Flags           []string `json:"flags,omitempty"`
	BlockingFlags   []string `json:"blocking_flags,omitempty"`
	Reason          string   `json:"reason,omitempty"`

	// Date-corrected candidate; kept out of the tool result returned to the
	// model to avoid round-tripping large objects through it.
	Workout *workout.Workout `json:"-"`
}

// DisciplineResult is the detection tool's output.
type DisciplineResult struct {
	Discipline string  `json:"discipline"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// NormalizationResult is the normalization tool's output.
type NormalizationResult struct {
	Normalized bool     `json:"normalized"`
	Valid      bool     `json:"valid"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues,omitempty"`
	Reason     string   `json:"reason,omitempty"`

	Workout *workout.Workout `json:"-"`
}

// SaveResult is the persistence tool's output.
type SaveResult struct {
	WorkoutID  uuid.UUID `json:"workout_id"`
	Discipline string    `json:"discipline"`
	Saved      bool      `json:"saved"`
}

// ModelClient is the model provider boundary.
type ModelClient interface {
	Messages(ctx context.Context, system string, messages []anthropic.Message, tools []anthropic.ToolDef, maxTokens int) (*anthropic.Response, error)
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// Saver is the persistence collaborator.
type Saver interface {
	SaveWorkout(ctx context.Context, w *workout.Workout, summary string) (uuid.UUID, error)
	IndexForSearch(ctx context.Context, w *workout.Workout, summary string) error
	LinkToTemplate(ctx context.Context, workoutID uuid.UUID, templateID string) (bool, error)
}

// Publisher is the event side channel.
type Publisher interface {
	Publish(subject string, data any) error
}

// runContext carries one Extraction Run's state through tool dispatch. Never
// shared across runs.
type runContext struct {
	input   RunInput
	results *Results
	now     time.Time
}

// Typed Result Store readers. Positional read first, latest-wins fallback for
// the single-workout case where the model never supplies an index.

func readDiscipline(r *Results, index int) *DisciplineResult {
	v, ok := r.ReadAt(roleDiscipline, index)
	if !ok {
		v, ok = r.Read(roleDiscipline)
	}
	if !ok {
		return nil
	}
	d, _ := v.(*DisciplineResult)
	return d
}

func readExtraction(r *Results, index int) *workout.Workout {
	v, ok := r.ReadAt(roleExtraction, index)
	if !ok {
		v, ok = r.Read(roleExtraction)
	}
	if !ok {
		return nil
	}
	w, _ := v.(*workout.Workout)
	return w
}

func readVerdict(r *Results, index int) *Verdict {
	v, ok := r.ReadAt(roleValidation, index)
	if !ok {
		v, ok = r.Read(roleValidation)
	}
	if !ok {
		return nil
	}
	verdict, _ := v.(*Verdict)
	return verdict
}

func readNormalization(r *Results, index int) *NormalizationResult {
	v, ok := r.ReadAt(roleNormalization, index)
	if !ok {
		return nil
	}
	n, _ := v.(*NormalizationResult)
	return n
}

func readSummary(r *Results, index int) (string, bool) {
	v, ok := r.ReadAt(roleSummary, index)
	if !ok {
		v, ok = r.Read(roleSummary)
	}
	if !ok {
		return "", false
	}
	s, sok := v.(string)
	return s, sok
}

// bestCandidate returns the most-processed candidate for a slot:
// normalized > validated > extracted.
func bestCandidate(r *Results, index int) *workout.Workout {
	if n := readNormalization(r, index); n != nil && n.Workout != nil {
		return n.Workout
	}
	if v := readVerdict(r, index); v != nil && v.Workout != nil {
		return v.Workout
	}
	return readExtraction(r, index)
}
