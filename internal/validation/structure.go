package validation

import (
	"github.com/formacoach/tally/internal/workout"
)

// StructureVerdict is the outcome of the cheap structural exercise check.
type StructureVerdict int

const (
	// StructurePresent means a structure array is populated; no further
	// judgment needed.
	StructurePresent StructureVerdict = iota
	// StructureAbsent means the candidate is conclusively empty.
	StructureAbsent
	// StructureInconclusive means no structure arrays exist, but prose fields
	// may still describe real activity; a semantic judgment is needed.
	StructureInconclusive
)

// CheckStructure runs the cheap structural field checks first. Only when those
// are inconclusive should the caller fall back to a semantic model judgment,
// and if that judgment itself errors, to a permissive default.
func CheckStructure(w *workout.Workout) StructureVerdict {
	if w == nil {
		return StructureAbsent
	}
	if w.HasStructure() {
		return StructurePresent
	}
	if w.Notes != "" || len(w.DisciplineSpecific) > 0 || w.DurationMinutes > 0 {
		return StructureInconclusive
	}
	return StructureAbsent
}
