package jsonrepair

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestStripNonJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "prose around object",
			input: `Here is the workout data: {"discipline":"crossfit"} hope that helps!`,
			want:  `{"discipline":"crossfit"}`,
		},
		{
			name:  "prose around array",
			input: `Sure! ["a","b"] done.`,
			want:  `["a","b"]`,
		},
		{
			name:  "no brackets",
			input: "I could not find a workout in that message.",
			want:  "I could not find a workout in that message.",
		},
		{
			name:  "array before object",
			input: `x [1,2,{"a":1}] y`,
			want:  `[1,2,{"a":1}]`,
		},
		{
			name:  "closer before opener only",
			input: `} no real json {`,
			want:  `} no real json {`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripNonJSON(tt.input); got != tt.want {
				t.Errorf("StripNonJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "json fence",
			input: "```json\n{\"discipline\":\"yoga\"}\n```",
			want:  `{"discipline":"yoga"}`,
		},
		{
			name:  "bare fence with prose",
			input: "The extraction:\n```\n{\"sets\":3}\n```\nLet me know!",
			want:  `{"sets":3}`,
		},
		{
			name:  "no fence",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.input); got != tt.want {
				t.Errorf("CleanResponse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFixMalformedJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{
			name:  "already valid",
			input: `{"a":1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "trailing comma in object",
			input: `{"a":1,}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "trailing comma in array",
			input: `{"a":[1,2,],}`,
			want:  map[string]any{"a": []any{float64(1), float64(2)}},
		},
		{
			name:  "truncated object",
			input: `{"a":{"b":1`,
			want:  map[string]any{"a": map[string]any{"b": float64(1)}},
		},
		{
			name:  "truncated array",
			input: `{"names":["squat","bench"`,
			want:  map[string]any{"names": []any{"squat", "bench"}},
		},
		{
			name:  "excess duplicate closers",
			input: `{"a":1}}}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "excess mixed closers at end",
			input: `{"a":[1]}]`,
			want:  map[string]any{"a": []any{float64(1)}},
		},
		{
			name:  "legit deep nesting untouched",
			input: `{"a":{"b":{"c":1}}}`,
			want:  map[string]any{"a": map[string]any{"b": map[string]any{"c": float64(1)}}},
		},
		{
			name:  "braces inside strings ignored",
			input: `{"note":"ran {fast}"`,
			want:  map[string]any{"note": "ran {fast}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FixMalformedJSON(tt.input)
			if err != nil {
				t.Fatalf("FixMalformedJSON(%q) error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FixMalformedJSON(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFixMalformedJSON_Unrepairable(t *testing.T) {
	if _, err := FixMalformedJSON("not json at all"); err == nil {
		t.Error("expected error for unrepairable input")
	}
}

// Excess-closer repairs must preserve the key set of the equivalent input
// with the surplus braces removed by hand.
func TestFixMalformedJSON_ExcessCloserKeySet(t *testing.T) {
	clean := `{"discipline":"crossfit","exercises":[{"name":"thruster","reps":21}],"confidence":0.9}`
	malformed := clean + "}}"

	want, err := FixMalformedJSON(clean)
	if err != nil {
		t.Fatalf("clean input failed to parse: %v", err)
	}
	got, err := FixMalformedJSON(malformed)
	if err != nil {
		t.Fatalf("malformed input not repaired: %v", err)
	}

	wantKeys := keySet(want)
	gotKeys := keySet(got)
	if !reflect.DeepEqual(wantKeys, gotKeys) {
		t.Errorf("key set mismatch: got %v, want %v", gotKeys, wantKeys)
	}
}

func keySet(v any) map[string]bool {
	keys := make(map[string]bool)
	m, ok := v.(map[string]any)
	if !ok {
		return keys
	}
	for k := range m {
		keys[k] = true
	}
	return keys
}

func TestFixDoubleEncodedJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "double encoded object",
			input: `"{\"a\":1}"`,
			want:  `{"a":1}`,
		},
		{
			name:  "double encoded array",
			input: `"[1,2]"`,
			want:  `[1,2]`,
		},
		{
			name:  "plain object untouched",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "quoted non-json untouched",
			input: `"just a sentence"`,
			want:  `"just a sentence"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixDoubleEncodedJSON(tt.input); got != tt.want {
				t.Errorf("FixDoubleEncodedJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFixDoubleEncodedProperties(t *testing.T) {
	input := map[string]any{
		"discipline": "crossfit",
		"discipline_specific": map[string]any{
			"performance_metrics": `{"total_time":"12:30","rx":true}`,
		},
		"tags": []any{`["metcon","amrap"]`, "plain"},
	}

	got := FixDoubleEncodedProperties(input).(map[string]any)

	ds := got["discipline_specific"].(map[string]any)
	metrics, ok := ds["performance_metrics"].(map[string]any)
	if !ok {
		t.Fatalf("performance_metrics still a string: %#v", ds["performance_metrics"])
	}
	if metrics["total_time"] != "12:30" {
		t.Errorf("expected total_time 12:30, got %v", metrics["total_time"])
	}

	tags := got["tags"].([]any)
	if _, ok := tags[0].([]any); !ok {
		t.Errorf("expected first tag entry decoded to array, got %#v", tags[0])
	}
	if tags[1] != "plain" {
		t.Errorf("plain string must survive, got %#v", tags[1])
	}
}

func TestFixDoubleEncodedProperties_Idempotent(t *testing.T) {
	inputs := []any{
		map[string]any{"a": `{"b":1}`},
		map[string]any{"a": map[string]any{"b": `[1,2,3]`}},
		[]any{`{"x":"y"}`, float64(2), "text"},
		map[string]any{"looks_like": "{not valid json", "n": nil},
		"plain string",
		float64(42),
	}

	for i, in := range inputs {
		once := FixDoubleEncodedProperties(clone(t, in))
		twice := FixDoubleEncodedProperties(clone(t, once))
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("case %d not idempotent: once=%#v twice=%#v", i, once, twice)
		}
	}
}

// clone round-trips through encoding/json so the fix runs on independent values.
func clone(t *testing.T, v any) any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestParseTrusted(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantVal any
	}{
		{
			name:    "clean json",
			input:   `{"discipline":"running"}`,
			wantKey: "discipline",
			wantVal: "running",
		},
		{
			name:    "fenced with prose",
			input:   "Here you go:\n```json\n{\"discipline\":\"yoga\"}\n```",
			wantKey: "discipline",
			wantVal: "yoga",
		},
		{
			name:    "whole payload double encoded",
			input:   `"{\"discipline\":\"swimming\"}"`,
			wantKey: "discipline",
			wantVal: "swimming",
		},
		{
			name:    "truncated",
			input:   `{"discipline":"rowing","sets":[{"m":500}`,
			wantKey: "discipline",
			wantVal: "rowing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseTrusted(tt.input)
			if err != nil {
				t.Fatalf("ParseTrusted(%q) error: %v", tt.input, err)
			}
			m, ok := v.(map[string]any)
			if !ok {
				t.Fatalf("expected object, got %#v", v)
			}
			if m[tt.wantKey] != tt.wantVal {
				t.Errorf("expected %s=%v, got %v", tt.wantKey, tt.wantVal, m[tt.wantKey])
			}
		})
	}
}

func TestParseTrusted_Exhausted(t *testing.T) {
	_, err := ParseTrusted("nothing to see here")
	if err == nil {
		t.Fatal("expected error")
	}
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Errorf("expected *MalformedResponseError, got %T", err)
	}
}
