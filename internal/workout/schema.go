package workout

import (
	"encoding/json"
)

// disciplineShape narrows the full extraction schema to one discipline.
type disciplineShape struct {
	structure []string // which structure arrays this discipline reports
	required  []string
	metrics   []string // expected discipline_specific keys, advisory
}

var shapes = map[string]disciplineShape{
	"powerlifting":  {structure: []string{"exercises"}, required: []string{"discipline", "exercises"}, metrics: []string{"top_set_lbs", "estimated_1rm"}},
	"weightlifting": {structure: []string{"exercises"}, required: []string{"discipline", "exercises"}, metrics: []string{"top_set_lbs"}},
	"bodybuilding":  {structure: []string{"exercises"}, required: []string{"discipline", "exercises"}, metrics: []string{"volume_lbs"}},
	"crossfit":      {structure: []string{"rounds", "exercises"}, required: []string{"discipline"}, metrics: []string{"performance_metrics", "rx", "total_time"}},
	"hiit":          {structure: []string{"stations", "rounds"}, required: []string{"discipline"}, metrics: []string{"work_rest_ratio"}},
	"running":       {structure: []string{"segments"}, required: []string{"discipline", "segments"}, metrics: []string{"avg_pace", "elevation_gain_m"}},
	"cycling":       {structure: []string{"segments"}, required: []string{"discipline", "segments"}, metrics: []string{"avg_power_w", "elevation_gain_m"}},
	"swimming":      {structure: []string{"segments"}, required: []string{"discipline", "segments"}, metrics: []string{"stroke", "pace_per_100m"}},
	"rowing":        {structure: []string{"segments"}, required: []string{"discipline", "segments"}, metrics: []string{"split_per_500m"}},
	"climbing":      {structure: []string{"exercises"}, required: []string{"discipline"}, metrics: []string{"grades", "sends"}},
	"martial_arts":  {structure: []string{"rounds"}, required: []string{"discipline"}, metrics: []string{"sparring_rounds"}},
	"yoga":          {structure: []string{"segments"}, required: []string{"discipline"}, metrics: []string{"style"}},
	"pilates":       {structure: []string{"segments"}, required: []string{"discipline"}},
	"mobility":      {structure: []string{"exercises"}, required: []string{"discipline"}},
	"hiking":        {structure: []string{"segments"}, required: []string{"discipline"}, metrics: []string{"elevation_gain_m"}},
	"walking":       {structure: []string{"segments"}, required: []string{"discipline"}},
}

var fallbackShape = disciplineShape{
	structure: []string{"exercises", "rounds", "segments", "stations"},
	required:  []string{"discipline"},
}

// ExpectedStructure lists which structure arrays a discipline is expected to
// report, fallback shapes for unknown disciplines.
func ExpectedStructure(discipline string) []string {
	shape, ok := shapes[discipline]
	if !ok {
		shape = fallbackShape
	}
	return shape.structure
}

// ComposeSchema returns a JSON schema for one discipline's expected extraction
// shape. Unknown disciplines get the permissive fallback schema; this lookup
// never fails.
func ComposeSchema(discipline string) json.RawMessage {
	shape, ok := shapes[discipline]
	if !ok {
		shape = fallbackShape
	}

	props := map[string]any{
		"discipline":         map[string]any{"type": "string"},
		"title":              map[string]any{"type": "string"},
		"date":               map[string]any{"type": "string", "description": "YYYY-MM-DD"},
		"duration_minutes":   map[string]any{"type": "number"},
		"perceived_exertion": map[string]any{"type": "number", "minimum": 1, "maximum": 10},
		"intensity":          map[string]any{"type": "number", "minimum": 1, "maximum": 10},
		"notes":              map[string]any{"type": "string"},
		"confidence":         map[string]any{"type": "number", "minimum": 0, "maximum": 1},
	}

	for _, s := range shape.structure {
		props[s] = structureSchema(s)
	}

	if len(shape.metrics) > 0 {
		props["discipline_specific"] = map[string]any{
			"type":        "object",
			"description": "discipline metrics, expected keys: " + joinComma(shape.metrics),
		}
	} else {
		props["discipline_specific"] = map[string]any{"type": "object"}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
		"required":   shape.required,
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		// Schemas are built from static tables; this cannot fail at runtime.
		panic("compose schema: " + err.Error())
	}
	return raw
}

func structureSchema(name string) map[string]any {
	switch name {
	case "exercises":
		return map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"sets": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"reps":             map[string]any{"type": "integer"},
								"weight_lbs":       map[string]any{"type": "number"},
								"distance_meters":  map[string]any{"type": "number"},
								"duration_seconds": map[string]any{"type": "number"},
								"rest_seconds":     map[string]any{"type": "number"},
							},
						},
					},
					"notes": map[string]any{"type": "string"},
				},
				"required": []string{"name"},
			},
		}
	case "rounds":
		return map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"number":    map[string]any{"type": "integer"},
					"exercises": structureSchema("exercises"),
					"notes":     map[string]any{"type": "string"},
				},
			},
		}
	case "segments":
		return map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"activity":         map[string]any{"type": "string"},
					"duration_minutes": map[string]any{"type": "number"},
					"distance_meters":  map[string]any{"type": "number"},
					"pace":             map[string]any{"type": "string"},
				},
			},
		}
	default: // stations
		return map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":         map[string]any{"type": "string"},
					"work_seconds": map[string]any{"type": "number"},
					"rest_seconds": map[string]any{"type": "number"},
				},
				"required": []string{"name"},
			},
		}
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
