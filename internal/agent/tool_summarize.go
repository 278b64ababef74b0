package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// summaryResult is what the model sees back; the text itself is also stored
// for the save step.
type summaryResult struct {
	Summary string `json:"summary"`
}

// summarizeWorkout produces the free-text summary used for search indexing
// and conversational memory, from the best-available candidate.
func (a *Agent) summarizeWorkout(ctx context.Context, rc *runContext, in toolInput) (*summaryResult, error) {
	candidate := bestCandidate(rc.results, in.WorkoutIndex)
	if candidate == nil {
		return nil, &PreconditionError{Tool: toolSummarize, Missing: roleExtraction, Index: in.WorkoutIndex}
	}

	data, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate: %w", err)
	}

	text, err := a.model.Complete(ctx, summarySystemPrompt, string(data), 1024)
	if err != nil {
		return nil, fmt.Errorf("summary call: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("summary call returned empty text")
	}

	rc.results.WriteAt(roleSummary, in.WorkoutIndex, text)

	a.logger.Info("summary generated", "index", in.WorkoutIndex, "chars", len(text))
	return &summaryResult{Summary: text}, nil
}
