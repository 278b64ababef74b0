package agent

// Result Store roles, keyed by the logical pipeline stage that wrote them.
const (
	roleDiscipline    = "discipline"
	roleExtraction    = "extraction"
	roleValidation    = "validation"
	roleNormalization = "normalization"
	roleSummary       = "summary"
	roleSave          = "save"
)

// Results is the per-run, role-keyed store of intermediate tool outputs.
// Writes are positional (explicit slot, grown with holes so the slot is stable
// regardless of call order) or append-only. One Extraction Run owns one
// Results; tool execution is strictly sequential, so no locking.
type Results struct {
	entries map[string][]any
}

func NewResults() *Results {
	return &Results{entries: make(map[string][]any)}
}

// Write appends a value under role.
func (r *Results) Write(role string, v any) {
	r.entries[role] = append(r.entries[role], v)
}

// WriteAt assigns a value to an explicit zero-based slot, growing the role's
// sequence with nil holes as needed. Supports the model processing workout N
// of a multi-workout message in any order.
func (r *Results) WriteAt(role string, index int, v any) {
	if index < 0 {
		return
	}
	seq := r.entries[role]
	for len(seq) <= index {
		seq = append(seq, nil)
	}
	seq[index] = v
	r.entries[role] = seq
}

// Read returns the last entry for role. Latest-wins preserves single-workout
// behavior where no index is ever supplied. ok is false when nothing has been
// written; callers must treat that as an error, not as null data.
func (r *Results) Read(role string) (any, bool) {
	seq := r.entries[role]
	if len(seq) == 0 {
		return nil, false
	}
	return seq[len(seq)-1], true
}

// ReadAt returns the exact slot. ok is false for unwritten slots and holes.
func (r *Results) ReadAt(role string, index int) (any, bool) {
	seq := r.entries[role]
	if index < 0 || index >= len(seq) || seq[index] == nil {
		return nil, false
	}
	return seq[index], true
}

// ReadAll returns the full ordered sequence for role, holes included.
func (r *Results) ReadAll(role string) []any {
	return r.entries[role]
}

// Len returns the sequence length for role.
func (r *Results) Len(role string) int {
	return len(r.entries[role])
}
