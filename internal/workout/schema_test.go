package workout

import (
	"encoding/json"
	"testing"
)

func TestComposeSchema_KnownDisciplines(t *testing.T) {
	for d := range shapes {
		raw := ComposeSchema(d)

		var schema map[string]any
		if err := json.Unmarshal(raw, &schema); err != nil {
			t.Fatalf("schema for %s not valid JSON: %v", d, err)
		}

		props, ok := schema["properties"].(map[string]any)
		if !ok {
			t.Fatalf("schema for %s has no properties", d)
		}
		if _, ok := props["discipline"]; !ok {
			t.Errorf("schema for %s missing discipline property", d)
		}

		// Every declared structure array must appear in the schema.
		for _, s := range shapes[d].structure {
			if _, ok := props[s]; !ok {
				t.Errorf("schema for %s missing structure %s", d, s)
			}
		}
	}
}

func TestComposeSchema_UnknownFallsBack(t *testing.T) {
	raw := ComposeSchema("underwater_basket_weaving")

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		t.Fatalf("fallback schema not valid JSON: %v", err)
	}

	props := schema["properties"].(map[string]any)
	// The fallback is permissive: all four structure shapes allowed.
	for _, s := range []string{"exercises", "rounds", "segments", "stations"} {
		if _, ok := props[s]; !ok {
			t.Errorf("fallback schema missing %s", s)
		}
	}
}

func TestIsQualitative(t *testing.T) {
	tests := []struct {
		discipline string
		want       bool
	}{
		{"yoga", true},
		{"walking", true},
		{"powerlifting", false},
		{"crossfit", false},
		{"general_fitness", false},
		{"unknown", false},
	}
	for _, tt := range tests {
		if got := IsQualitative(tt.discipline); got != tt.want {
			t.Errorf("IsQualitative(%s) = %v, want %v", tt.discipline, got, tt.want)
		}
	}
}

func TestExerciseCount(t *testing.T) {
	w := &Workout{
		Exercises: []Exercise{{Name: "back squat"}, {Name: "bench press"}},
		Rounds:    []Round{{Exercises: []Exercise{{Name: "thruster"}, {Name: "pull-up"}}}},
		Segments:  []Segment{{Activity: "run"}},
	}
	if got := w.ExerciseCount(); got != 5 {
		t.Errorf("ExerciseCount = %d, want 5", got)
	}
	if !w.HasStructure() {
		t.Error("expected HasStructure true")
	}

	empty := &Workout{}
	if empty.HasStructure() {
		t.Error("expected HasStructure false for empty workout")
	}
}
