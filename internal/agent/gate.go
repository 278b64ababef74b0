package agent

import (
	"fmt"
)

// Block is the gate's veto. Not an exception: a first-class, authoritative
// decision that halts the pipeline for that workout index.
type Block struct {
	Reason string
	Flags  []string
}

func (b *Block) Error() string {
	return fmt.Sprintf("blocked by validation: %s", b.Reason)
}

// gatedTools are vetoed by a failed validation verdict. One rule covers both:
// normalization of an unsaveable candidate is as pointless as saving it.
var gatedTools = map[string]bool{
	toolNormalize: true,
	toolSave:      true,
}

// checkGate is consulted before every tool invocation. For gated tools it
// reads the validation verdict for the same index; a ShouldSave=false verdict
// vetoes execution. This is the single authoritative veto point: no other
// code path, including retries, may bypass it.
func checkGate(r *Results, toolName string, index int) *Block {
	if !gatedTools[toolName] {
		return nil
	}

	verdict := readVerdict(r, index)
	if verdict == nil {
		// No verdict yet: not the gate's call. The tool itself fails its
		// precondition check.
		return nil
	}
	if verdict.ShouldSave {
		return nil
	}

	reason := verdict.Reason
	if reason == "" {
		reason = "validation rejected this workout"
	}
	return &Block{Reason: reason, Flags: verdict.BlockingFlags}
}
