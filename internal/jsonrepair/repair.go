// Package jsonrepair turns raw model output into parsed JSON, surviving
// markdown fences, surrounding prose, truncation, unbalanced brackets and
// double-encoded payloads. Model output is untrusted: every stage here is a
// best-effort repair that re-parses before giving up.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MalformedResponseError means every repair stage was exhausted without
// producing parseable JSON.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response (%s): %v", head(e.Raw, 120), e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func head(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ParseTrusted runs the full repair pipeline over a raw model response and
// returns the parsed value. Fails with *MalformedResponseError only when all
// stages are exhausted.
func ParseTrusted(raw string) (any, error) {
	s := strings.TrimSpace(raw)

	// A whole payload re-encoded as a JSON string ("{\"a\":1}") hides its
	// brackets behind escapes, so unwrap before bracket extraction.
	s = FixDoubleEncodedJSON(s)

	s = StripNonJSON(s)
	s = CleanResponse(s)

	v, err := FixMalformedJSON(s)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	return FixDoubleEncodedProperties(v), nil
}

// StripNonJSON discards everything outside the first '{' or '[' and the last
// matching closer. Returns the input unchanged when no bracket is found.
func StripNonJSON(s string) string {
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	closer := byte('}')
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start = arrStart
		closer = ']'
	}
	if start == -1 {
		return s
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// CleanResponse strips markdown code-fence markers and re-runs bracket
// extraction, which handles fences that still leave surrounding prose.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return StripNonJSON(strings.TrimSpace(s))
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// FixMalformedJSON parses s, applying targeted repairs on failure: trailing
// commas are removed, missing closers are appended, and excess closers are
// first collapsed (}}} -> }) then trimmed from the end. The input is re-parsed
// after each repair so well-formed nesting is never touched.
func FixMalformedJSON(s string) (any, error) {
	if v, err := tryParse(s); err == nil {
		return v, nil
	}

	s = trailingCommaRe.ReplaceAllString(s, "$1")
	if v, err := tryParse(s); err == nil {
		return v, nil
	}

	braces, brackets := bracketBalance(s)

	if braces > 0 || brackets > 0 {
		s = appendMissingClosers(s)
		if v, err := tryParse(s); err == nil {
			return v, nil
		}
	}

	if braces < 0 || brackets < 0 {
		collapsed := collapseDuplicateClosers(s)
		if v, err := tryParse(collapsed); err == nil {
			return v, nil
		}
		collapsed = trimExcessClosers(collapsed)
		if v, err := tryParse(collapsed); err == nil {
			return v, nil
		}
	}

	_, err := tryParse(s)
	return nil, err
}

// FixDoubleEncodedJSON unwraps one level of whole-payload double encoding: a
// trimmed input that is itself a quoted JSON string whose decoded value also
// looks like JSON. Anything else passes through unchanged.
func FixDoubleEncodedJSON(s string) string {
	t := strings.TrimSpace(s)
	if len(t) < 2 || t[0] != '"' || t[len(t)-1] != '"' {
		return s
	}
	var inner string
	if err := json.Unmarshal([]byte(t), &inner); err != nil {
		return s
	}
	inner = strings.TrimSpace(inner)
	if len(inner) == 0 || (inner[0] != '{' && inner[0] != '[') {
		return s
	}
	return inner
}

// FixDoubleEncodedProperties walks a parsed value and replaces any string
// property whose content is itself JSON with the parsed structure, recursing
// into the result. Idempotent: a second pass finds no remaining string JSON.
func FixDoubleEncodedProperties(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = FixDoubleEncodedProperties(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = FixDoubleEncodedProperties(item)
		}
		return val
	case string:
		t := strings.TrimSpace(val)
		if len(t) > 0 && (t[0] == '{' || t[0] == '[') {
			var parsed any
			if err := json.Unmarshal([]byte(t), &parsed); err == nil {
				return FixDoubleEncodedProperties(parsed)
			}
		}
		return val
	default:
		return v
	}
}

func tryParse(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// bracketBalance returns open-minus-close counts for braces and brackets,
// ignoring characters inside string literals. Positive means missing closers,
// negative means excess closers.
func bracketBalance(s string) (braces, brackets int) {
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		}
	}
	return braces, brackets
}

// appendMissingClosers closes unclosed openers in reverse open order, the
// usual shape of a truncated response.
func appendMissingClosers(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	// A response cut mid-string needs its quote closed first.
	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// collapseDuplicateClosers reduces every run of two or more identical closers
// outside string literals to a single closer. Destructive for well-formed
// nesting, which is why callers re-parse and only reach this after a direct
// parse has already failed with excess closers.
func collapseDuplicateClosers(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			prev = 0
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			prev = 0
			continue
		}
		if (c == '}' || c == ']') && c == prev {
			continue
		}
		b.WriteByte(c)
		prev = c
		if c != '}' && c != ']' {
			prev = 0
		}
	}
	return b.String()
}

// trimExcessClosers drops surplus closers from the end of the input until the
// counts balance.
func trimExcessClosers(s string) string {
	braces, brackets := bracketBalance(s)
	for braces < 0 || brackets < 0 {
		t := strings.TrimRight(s, " \t\r\n")
		if len(t) == 0 {
			return s
		}
		last := t[len(t)-1]
		switch {
		case last == '}' && braces < 0:
			braces++
		case last == ']' && brackets < 0:
			brackets++
		default:
			return s
		}
		s = t[:len(t)-1]
	}
	return s
}
