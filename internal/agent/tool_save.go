package agent

import (
	"context"
	"fmt"

	"github.com/formacoach/tally/internal/bus"
)

// saveWorkout is the final step: fail-fast preconditions, one persistence
// write, and two detached best-effort side effects that must never fail the
// save.
func (a *Agent) saveWorkout(ctx context.Context, rc *runContext, in toolInput) (*SaveResult, error) {
	extracted := readExtraction(rc.results, in.WorkoutIndex)
	if extracted == nil {
		return nil, &PreconditionError{Tool: toolSave, Missing: roleExtraction, Index: in.WorkoutIndex}
	}
	verdict := readVerdict(rc.results, in.WorkoutIndex)
	if verdict == nil {
		return nil, &PreconditionError{Tool: toolSave, Missing: roleValidation, Index: in.WorkoutIndex}
	}
	summary, ok := readSummary(rc.results, in.WorkoutIndex)
	if !ok {
		return nil, &PreconditionError{Tool: toolSave, Missing: roleSummary, Index: in.WorkoutIndex}
	}

	if norm := readNormalization(rc.results, in.WorkoutIndex); norm != nil && norm.Normalized && !norm.Valid {
		return nil, fmt.Errorf("refusing to save workout %d: normalization reported it invalid (confidence %.2f, %d issues)",
			in.WorkoutIndex, norm.Confidence, len(norm.Issues))
	}

	candidate := bestCandidate(rc.results, in.WorkoutIndex)

	id, err := a.store.SaveWorkout(ctx, candidate, summary)
	if err != nil {
		return nil, fmt.Errorf("save workout %d: %w", in.WorkoutIndex, err)
	}
	candidate.ID = id

	// Search indexing and the derived-record trigger are off the critical
	// path: detached, observed only by logging, never retried here.
	a.spawn(ctx, "index_for_search", func(ctx context.Context) error {
		return a.store.IndexForSearch(ctx, candidate, summary)
	})
	saved := bus.WorkoutSavedEvent{
		WorkoutID:  id.String(),
		UserID:     candidate.UserID,
		Discipline: candidate.Discipline,
		Date:       candidate.Date,
		Confidence: candidate.Confidence,
		Summary:    summary,
		TemplateID: rc.input.TemplateID,
	}
	a.spawn(ctx, "workout_saved_event", func(ctx context.Context) error {
		return a.bus.Publish(bus.SubjectWorkoutSaved, saved)
	})

	if rc.input.TemplateID != "" {
		linked, err := a.store.LinkToTemplate(ctx, id, rc.input.TemplateID)
		if err != nil {
			a.logger.Warn("template link failed", "workout_id", id, "template_id", rc.input.TemplateID, "error", err)
		} else if !linked {
			a.logger.Warn("template not found for link", "template_id", rc.input.TemplateID)
		}
	}

	result := &SaveResult{WorkoutID: id, Discipline: candidate.Discipline, Saved: true}
	rc.results.WriteAt(roleSave, in.WorkoutIndex, result)

	a.logger.Info("workout saved",
		"index", in.WorkoutIndex,
		"workout_id", id,
		"discipline", candidate.Discipline,
		"user", candidate.UserID,
	)
	return result, nil
}
