package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/formacoach/tally/internal/jsonrepair"
	"github.com/formacoach/tally/internal/workout"
)

// confidenceNudge is the bounded increment a successful normalization may add
// to the candidate's confidence. Never drops it, never exceeds the
// normalization's own reported confidence.
const confidenceNudge = 0.05

// normalizeWorkout repairs the candidate's structure against the discipline's
// expected schema shape. Only meaningful when the validation verdict asked for
// it; the gate has already vetoed the ShouldSave=false case.
func (a *Agent) normalizeWorkout(ctx context.Context, rc *runContext, in toolInput) (*NormalizationResult, error) {
	verdict := readVerdict(rc.results, in.WorkoutIndex)
	if verdict == nil {
		return nil, &PreconditionError{Tool: toolNormalize, Missing: roleValidation, Index: in.WorkoutIndex}
	}

	if !verdict.ShouldNormalize {
		result := &NormalizationResult{
			Normalized: false,
			Valid:      true,
			Confidence: verdict.Confidence,
			Reason:     "validation did not request normalization",
		}
		rc.results.WriteAt(roleNormalization, in.WorkoutIndex, result)
		return result, nil
	}

	candidate := bestCandidate(rc.results, in.WorkoutIndex)
	if candidate == nil {
		return nil, &PreconditionError{Tool: toolNormalize, Missing: roleExtraction, Index: in.WorkoutIndex}
	}

	candidateJSON, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate: %w", err)
	}
	schema := workout.ComposeSchema(candidate.Discipline)
	prompt := fmt.Sprintf("Expected schema:\n%s\n\nWorkout to repair:\n%s", schema, candidateJSON)

	raw, err := a.model.Complete(ctx, normalizeSystemPrompt, prompt, 4096)
	if err != nil {
		return nil, fmt.Errorf("normalization call: %w", err)
	}
	parsed, err := jsonrepair.ParseTrusted(raw)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Workout    json.RawMessage `json:"workout"`
		Valid      bool            `json:"valid"`
		Confidence float64         `json:"confidence"`
		Issues     []string        `json:"issues"`
	}
	data, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("remarshal normalization: %w", err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode normalization: %w", err)
	}
	if len(payload.Workout) == 0 {
		return nil, fmt.Errorf("normalization returned no workout")
	}

	repaired, err := decodeCandidate(payload.Workout)
	if err != nil {
		return nil, fmt.Errorf("decode repaired workout: %w", err)
	}

	// System-owned fields survive normalization untouched.
	repaired.ID = candidate.ID
	repaired.UserID = candidate.UserID
	repaired.GenerationMethod = candidate.GenerationMethod
	repaired.Completeness = candidate.Completeness
	repaired.Flags = candidate.Flags

	confidence := candidate.Confidence
	if payload.Confidence > confidence {
		confidence = confidence + confidenceNudge
		if confidence > payload.Confidence {
			confidence = payload.Confidence
		}
	}
	repaired.Confidence = confidence

	result := &NormalizationResult{
		Normalized: true,
		Valid:      payload.Valid,
		Confidence: confidence,
		Issues:     payload.Issues,
		Workout:    repaired,
	}
	rc.results.WriteAt(roleNormalization, in.WorkoutIndex, result)

	a.logger.Info("workout normalized",
		"index", in.WorkoutIndex,
		"valid", payload.Valid,
		"confidence", confidence,
		"issues", len(payload.Issues),
	)
	return result, nil
}
