package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/formacoach/tally/internal/anthropic"
)

// toolInput is the decoded model-supplied input, one explicit shape per tool
// id rather than scattered any-casts.
type toolInput struct {
	Message      string `json:"message"`
	WorkoutIndex int    `json:"workout_index"`
}

// dispatch routes one tool-use request through the blocking gate to its
// implementation and renders the result (or error) for the model. The bool
// reports whether the tool produced a successful result.
func (a *Agent) dispatch(ctx context.Context, rc *runContext, use anthropic.ContentBlock) (string, bool) {
	var in toolInput
	if len(use.Input) > 0 {
		if err := json.Unmarshal(use.Input, &in); err != nil {
			a.logger.Warn("undecodable tool input", "tool", use.Name, "error", err)
			return fmt.Sprintf("invalid input for %s: %v", use.Name, err), false
		}
	}

	// The gate is consulted before every invocation; it vetoes gated tools
	// whose validation verdict said no.
	if block := checkGate(rc.results, use.Name, in.WorkoutIndex); block != nil {
		a.logger.Info("tool blocked by validation",
			"tool", use.Name,
			"index", in.WorkoutIndex,
			"reason", block.Reason,
		)
		return block.Error(), false
	}

	var (
		out any
		err error
	)
	switch use.Name {
	case toolDetect:
		out = a.detectDiscipline(ctx, rc, in)
	case toolExtract:
		out, err = a.extractWorkout(ctx, rc, in)
	case toolValidate:
		out, err = a.validateWorkout(ctx, rc, in)
	case toolNormalize:
		out, err = a.normalizeWorkout(ctx, rc, in)
	case toolSummarize:
		out, err = a.summarizeWorkout(ctx, rc, in)
	case toolSave:
		out, err = a.saveWorkout(ctx, rc, in)
	default:
		err = fmt.Errorf("unknown tool %q", use.Name)
	}

	if err != nil {
		a.logger.Warn("tool failed", "tool", use.Name, "index", in.WorkoutIndex, "error", err)
		return err.Error(), false
	}

	payload, merr := json.Marshal(out)
	if merr != nil {
		a.logger.Error("tool result not serializable", "tool", use.Name, "error", merr)
		return "internal error serializing tool result", false
	}
	return string(payload), true
}
