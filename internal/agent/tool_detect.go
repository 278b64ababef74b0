package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/formacoach/tally/internal/jsonrepair"
	"github.com/formacoach/tally/internal/workout"
)

// defaultDetectConfidence is the marked-down confidence stamped on the safe
// default when classification fails. The pipeline continues either way.
const defaultDetectConfidence = 0.3

// detectDiscipline classifies the message's discipline. Internal failure never
// propagates: the run must not die because classification did.
func (a *Agent) detectDiscipline(ctx context.Context, rc *runContext, in toolInput) *DisciplineResult {
	message := in.Message
	if message == "" {
		message = rc.input.Message
	}

	result := a.classify(ctx, message)
	rc.results.WriteAt(roleDiscipline, in.WorkoutIndex, result)

	a.logger.Info("discipline detected",
		"index", in.WorkoutIndex,
		"discipline", result.Discipline,
		"confidence", result.Confidence,
	)
	return result
}

func (a *Agent) classify(ctx context.Context, message string) *DisciplineResult {
	raw, err := a.model.Complete(ctx, detectSystem(), message, 512)
	if err != nil {
		a.logger.Warn("discipline classification failed",
			"error", &ClassificationFailure{Stage: "detect_discipline", Err: err})
		return &DisciplineResult{
			Discipline: workout.DefaultDiscipline,
			Confidence: defaultDetectConfidence,
			Reasoning:  "classification unavailable, defaulted",
		}
	}

	parsed, err := jsonrepair.ParseTrusted(raw)
	if err != nil {
		a.logger.Warn("discipline response unparseable",
			"error", &ClassificationFailure{Stage: "detect_discipline", Err: err})
		return &DisciplineResult{
			Discipline: workout.DefaultDiscipline,
			Confidence: defaultDetectConfidence,
			Reasoning:  "classification unparseable, defaulted",
		}
	}

	var result DisciplineResult
	if data, err := json.Marshal(parsed); err == nil {
		_ = json.Unmarshal(data, &result)
	}

	result.Discipline = strings.ToLower(strings.TrimSpace(result.Discipline))
	result.Discipline = strings.ReplaceAll(result.Discipline, " ", "_")
	if result.Discipline == "" {
		result.Discipline = workout.DefaultDiscipline
		result.Confidence = defaultDetectConfidence
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		result.Confidence = defaultDetectConfidence
	}
	return &result
}
