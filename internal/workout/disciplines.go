package workout

// DefaultDiscipline is the safe fallback when classification fails or the
// discipline is unknown. Marked-down confidence, never a hard failure.
const DefaultDiscipline = "general_fitness"

// knownDisciplines is the catalog the extraction schemas are keyed by.
var knownDisciplines = map[string]bool{
	"powerlifting":    true,
	"weightlifting":   true,
	"bodybuilding":    true,
	"crossfit":        true,
	"hiit":            true,
	"running":         true,
	"cycling":         true,
	"swimming":        true,
	"rowing":          true,
	"climbing":        true,
	"martial_arts":    true,
	"yoga":            true,
	"pilates":         true,
	"mobility":        true,
	"hiking":          true,
	"walking":         true,
	"general_fitness": true,
}

// qualitativeDisciplines are activity/completion based: doing the session is
// the record, no sets/reps structure is required to save it.
var qualitativeDisciplines = map[string]bool{
	"yoga":     true,
	"pilates":  true,
	"mobility": true,
	"hiking":   true,
	"walking":  true,
}

// IsKnown reports whether d has a dedicated extraction schema.
func IsKnown(d string) bool { return knownDisciplines[d] }

// IsQualitative reports whether d is activity-based rather than requiring
// structured sets/reps.
func IsQualitative(d string) bool { return qualitativeDisciplines[d] }

// Disciplines returns the catalog for prompt assembly.
func Disciplines() []string {
	out := make([]string, 0, len(knownDisciplines))
	for d := range knownDisciplines {
		out = append(out, d)
	}
	return out
}
