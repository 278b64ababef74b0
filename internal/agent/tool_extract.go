package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/formacoach/tally/internal/anthropic"
	"github.com/formacoach/tally/internal/jsonrepair"
	"github.com/formacoach/tally/internal/workout"
)

// Explicit numeric defaults for effort ratings the message didn't mention.
// Deliberately not null-propagation: downstream scoring expects numbers.
const (
	defaultPerceivedExertion = 7.0
	defaultIntensity         = 6.0
)

const extractToolName = "record_workout"

// extractWorkout turns the message into a Structured Workout Candidate using
// the discipline-narrowed schema. Requires the detection result; tool-call
// failure falls back to a raw-JSON request through the repair pipeline.
func (a *Agent) extractWorkout(ctx context.Context, rc *runContext, in toolInput) (*workout.Workout, error) {
	det := readDiscipline(rc.results, in.WorkoutIndex)
	if det == nil {
		return nil, &PreconditionError{Tool: toolExtract, Missing: roleDiscipline, Index: in.WorkoutIndex}
	}

	message := in.Message
	if message == "" {
		message = rc.input.Message
	}
	schema := workout.ComposeSchema(det.Discipline)
	dateStr := rc.now.Format("2006-01-02")
	userPrompt := fmt.Sprintf("Discipline: %s\n\nMessage:\n%s", det.Discipline, message)

	w, err := a.extractViaTool(ctx, schema, dateStr, userPrompt)
	method := "tool"
	if err != nil {
		a.logger.Warn("tool extraction failed, falling back to raw JSON",
			"index", in.WorkoutIndex, "error", err)
		w, err = a.extractViaFallback(ctx, schema, dateStr, userPrompt)
		method = "fallback"
		if err != nil {
			return nil, fmt.Errorf("extraction failed on both paths: %w", err)
		}
	}

	// System-owned fields are stamped here, never trusted from the model.
	w.ID = uuid.New()
	w.UserID = rc.input.UserID
	w.GenerationMethod = method
	if w.Discipline == "" {
		w.Discipline = det.Discipline
	}
	if w.PerceivedExertion <= 0 {
		w.PerceivedExertion = defaultPerceivedExertion
	}
	if w.Intensity <= 0 {
		w.Intensity = defaultIntensity
	}

	rc.results.WriteAt(roleExtraction, in.WorkoutIndex, w)

	a.logger.Info("workout extracted",
		"index", in.WorkoutIndex,
		"discipline", w.Discipline,
		"exercises", w.ExerciseCount(),
		"method", method,
	)
	return w, nil
}

func (a *Agent) extractViaTool(ctx context.Context, schema json.RawMessage, dateStr, userPrompt string) (*workout.Workout, error) {
	system := fmt.Sprintf(extractSystemPrompt, dateStr)
	tools := []anthropic.ToolDef{{
		Name:        extractToolName,
		Description: "Report the structured workout extracted from the message.",
		InputSchema: schema,
	}}

	resp, err := a.model.Messages(ctx, system, []anthropic.Message{anthropic.TextMessage("user", userPrompt)}, tools, 4096)
	if err != nil {
		return nil, err
	}
	uses := resp.ToolUses()
	if len(uses) == 0 {
		return nil, fmt.Errorf("model answered with text instead of the %s tool", extractToolName)
	}
	return decodeCandidate(uses[0].Input)
}

func (a *Agent) extractViaFallback(ctx context.Context, schema json.RawMessage, dateStr, userPrompt string) (*workout.Workout, error) {
	system := fmt.Sprintf(extractFallbackSystemPrompt, schema, dateStr)
	raw, err := a.model.Complete(ctx, system, userPrompt, 4096)
	if err != nil {
		return nil, err
	}
	parsed, err := jsonrepair.ParseTrusted(raw)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("remarshal repaired extraction: %w", err)
	}
	return decodeCandidate(data)
}

// decodeCandidate parses a candidate payload, fixing double-encoded nested
// properties before the typed decode. Models that see their own JSON
// round-tripped sometimes re-encode objects as strings.
func decodeCandidate(raw json.RawMessage) (*workout.Workout, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse candidate: %w", err)
	}
	v = jsonrepair.FixDoubleEncodedProperties(v)

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("remarshal candidate: %w", err)
	}
	var w workout.Workout
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	return &w, nil
}
