package validation

import (
	"time"
)

const dateLayout = "2006-01-02"

// CorrectDate repairs implausible workout dates against the completion time.
// Models trained on older data routinely report last year's (or a hallucinated)
// year for "today"; a month/day that is otherwise plausible keeps its month and
// day and takes the completion year. A corrected date that still lands in the
// future slides back one year. Returns the corrected date and whether a
// correction was applied. Unparseable input is returned unchanged.
func CorrectDate(date string, now time.Time) (string, bool) {
	if date == "" {
		return date, false
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return date, false
	}

	corrected := parsed
	changed := false

	if parsed.Year() != now.Year() {
		corrected = time.Date(now.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		changed = true
	}

	// More than a day ahead of completion time cannot be a logged workout.
	if corrected.After(now.Add(24 * time.Hour)) {
		corrected = corrected.AddDate(-1, 0, 0)
		changed = true
	}

	if !changed {
		return date, false
	}
	return corrected.Format(dateLayout), true
}
