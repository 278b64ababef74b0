package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/formacoach/tally/internal/jsonrepair"
	"github.com/formacoach/tally/internal/validation"
	"github.com/formacoach/tally/internal/workout"
)

// Validation flags. Which of them block depends on the message source and the
// discipline class.
const (
	flagInsufficientData  = "insufficient_data"
	flagMissingExercises  = "missing_exercises"
	flagMissingDiscipline = "missing_discipline"
	flagLowConfidence     = "low_confidence"
	flagMissingDate       = "missing_date"
	flagDateCorrected     = "date_corrected"
	flagStructureMismatch = "structure_mismatch"
)

const lowConfidenceFloor = 0.4

// validateWorkout re-reads the extraction from the Result Store (the full
// candidate is never round-tripped through the model) and produces the
// authoritative verdict for this index.
func (a *Agent) validateWorkout(ctx context.Context, rc *runContext, in toolInput) (*Verdict, error) {
	extracted := readExtraction(rc.results, in.WorkoutIndex)
	if extracted == nil {
		return nil, &PreconditionError{Tool: toolValidate, Missing: roleExtraction, Index: in.WorkoutIndex}
	}

	// Validation owns a copy; extraction's output stays untouched for audit.
	w := *extracted

	var flags []string

	if w.Discipline == "" {
		flags = append(flags, flagMissingDiscipline)
	}

	if w.Date == "" {
		flags = append(flags, flagMissingDate)
		w.Date = rc.now.Format("2006-01-02")
	} else if corrected, changed := validation.CorrectDate(w.Date, rc.now); changed {
		a.logger.Info("implausible date corrected",
			"index", in.WorkoutIndex, "from", w.Date, "to", corrected)
		w.Date = corrected
		flags = append(flags, flagDateCorrected)
	}

	qualitative := workout.IsQualitative(w.Discipline)

	if !a.hasActivity(ctx, &w) {
		flags = append(flags, flagMissingExercises)
	}

	if mismatch := structureMismatch(&w); mismatch && !qualitative {
		flags = append(flags, flagStructureMismatch)
	}

	completeness := validation.CompletenessScore(&w)
	detConf := defaultDetectConfidence
	if det := readDiscipline(rc.results, in.WorkoutIndex); det != nil {
		detConf = det.Confidence
	}
	confidence := validation.ConfidenceScore(&w, detConf)

	if completeness < validation.HardFloor {
		flags = append(flags, flagInsufficientData)
	}
	if confidence < lowConfidenceFloor {
		flags = append(flags, flagLowConfidence)
	}

	blocking := blockingFlags(flags, rc.input.Source, qualitative)
	shouldSave := len(blocking) == 0

	w.Confidence = confidence
	w.Completeness = completeness
	w.Flags = flags

	verdict := &Verdict{
		ShouldSave:      shouldSave,
		ShouldNormalize: shouldSave && contains(flags, flagStructureMismatch),
		Confidence:      confidence,
		Completeness:    completeness,
		Flags:           flags,
		BlockingFlags:   blocking,
		Workout:         &w,
	}
	if !shouldSave {
		verdict.Reason = fmt.Sprintf("workout %d failed validation: %s", in.WorkoutIndex, strings.Join(blocking, ", "))
	}

	rc.results.WriteAt(roleValidation, in.WorkoutIndex, verdict)

	a.logger.Info("workout validated",
		"index", in.WorkoutIndex,
		"should_save", shouldSave,
		"confidence", confidence,
		"completeness", completeness,
		"blocking_flags", blocking,
	)
	return verdict, nil
}

// hasActivity requires the candidate to contain some exercise/activity
// structure: cheap structural checks first, a semantic model judgment only
// when inconclusive, and a permissive default if that judgment itself errors.
func (a *Agent) hasActivity(ctx context.Context, w *workout.Workout) bool {
	switch validation.CheckStructure(w) {
	case validation.StructurePresent:
		return true
	case validation.StructureAbsent:
		return false
	}

	prompt := w.Notes
	if prompt == "" {
		data, _ := json.Marshal(w)
		prompt = string(data)
	}
	raw, err := a.model.Complete(ctx, judgeActivitySystemPrompt, prompt, 256)
	if err != nil {
		a.logger.Warn("activity judgment failed, defaulting to permissive",
			"error", &ClassificationFailure{Stage: "activity_judgment", Err: err})
		return true
	}
	parsed, err := jsonrepair.ParseTrusted(raw)
	if err != nil {
		a.logger.Warn("activity judgment unparseable, defaulting to permissive",
			"error", &ClassificationFailure{Stage: "activity_judgment", Err: err})
		return true
	}
	if m, ok := parsed.(map[string]any); ok {
		if performed, ok := m["performed"].(bool); ok {
			return performed
		}
	}
	return true
}

// structureMismatch reports whether the candidate reports its work in a
// structure shape the discipline doesn't expect (a run logged as exercises,
// lifting logged as segments). Normalization can repair it.
func structureMismatch(w *workout.Workout) bool {
	if !w.HasStructure() {
		return false
	}
	expected := make(map[string]bool)
	for _, s := range workout.ExpectedStructure(w.Discipline) {
		expected[s] = true
	}

	if len(w.Exercises) > 0 && !expected["exercises"] {
		return true
	}
	if len(w.Rounds) > 0 && !expected["rounds"] {
		return true
	}
	if len(w.Segments) > 0 && !expected["segments"] {
		return true
	}
	if len(w.Stations) > 0 && !expected["stations"] {
		return true
	}
	return false
}

// blockingFlags intersects the detected flags with the blocking set for this
// source and discipline class. Explicit commands are lenient; free natural
// language is strict; qualitative disciplines drop the structure requirement.
// insufficient_data blocks unconditionally: the hard floor.
func blockingFlags(flags []string, source Source, qualitative bool) []string {
	set := map[string]bool{
		flagInsufficientData: true,
		flagMissingExercises: true,
	}
	if source == SourceNatural {
		set[flagMissingDiscipline] = true
		set[flagLowConfidence] = true
	}
	if qualitative {
		delete(set, flagMissingExercises)
	}

	var blocking []string
	for _, f := range flags {
		if set[f] {
			blocking = append(blocking, f)
		}
	}
	return blocking
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
