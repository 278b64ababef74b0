package agent

import (
	"regexp"
	"strings"
)

// ResponseClass is what a final text response (no further tool calls) means
// for the run.
type ResponseClass int

const (
	// ResponseNeutral carries no retry signal either way.
	ResponseNeutral ResponseClass = iota
	// ResponseRefusal is a legitimate refusal: the model correctly declined
	// to log. Trust it, never retry.
	ResponseRefusal
	// ResponseIncomplete looks like the model stalled waiting for input:
	// questions, clarification requests, conditionals. Retry candidate.
	ResponseIncomplete
)

// Classifier decides what a final text response means. Pluggable so the
// pattern set can be swapped or made model-based without touching the
// orchestration loop.
type Classifier interface {
	Classify(text string) ResponseClass
}

// PatternClassifier is the regex-heuristic implementation.
type PatternClassifier struct {
	refusals   []*regexp.Regexp
	incomplete []*regexp.Regexp
}

func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{
		refusals: compileAll(
			`(?i)\bnot\s+(a|an)\s+(workout|training\s+session|completed)`,
			`(?i)\bno\s+(workout|completed|loggable)`,
			`(?i)\b(didn't|did\s+not|haven't|hasn't)\s+(log|record|save|complete|do|done)`,
			`(?i)\b(can't|cannot|won't|unable\s+to)\s+(log|record|save|extract)`,
			`(?i)\binsufficient\b`,
			`(?i)\bnot\s+enough\s+(information|detail|data)`,
			`(?i)\b(future|upcoming|planned|planning|a\s+plan)\b`,
			`(?i)\bnothing\s+to\s+(log|record|save)\b`,
		),
		incomplete: compileAll(
			`(?i)\b(could|can|would|will)\s+you\b`,
			`(?i)\bplease\s+(provide|share|tell|clarify|confirm)`,
			`(?i)\b(which|what|how\s+many|how\s+much)\b.*\?`,
			`(?i)\blet\s+me\s+know\b`,
			`(?i)\b(if|once|when|as\s+soon\s+as)\s+you\b`,
			`(?i)\bneed\s+(more|a\s+few|some)\s+(details?|information)`,
		),
	}
}

// Classify applies the refusal set first: an explicit refusal is correct
// non-action even when phrased as a question.
func (c *PatternClassifier) Classify(text string) ResponseClass {
	t := strings.TrimSpace(text)
	if t == "" {
		return ResponseNeutral
	}
	for _, re := range c.refusals {
		if re.MatchString(t) {
			return ResponseRefusal
		}
	}
	for _, re := range c.incomplete {
		if re.MatchString(t) {
			return ResponseIncomplete
		}
	}
	// A bare trailing question with no refusal language reads as the model
	// waiting for an answer.
	if strings.HasSuffix(t, "?") {
		return ResponseIncomplete
	}
	return ResponseNeutral
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// retryDirective is appended to the reissued message on the single bounded
// retry: forbid further questions, mandate defaults for missing data.
const retryDirective = `

IMPORTANT: Do not ask any questions or wait for clarification. Process the message above now, end to end. Where data is missing, apply sensible default assumptions and proceed through the full workflow.`
