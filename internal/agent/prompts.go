package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/formacoach/tally/internal/anthropic"
	"github.com/formacoach/tally/internal/workout"
)

// Tool names. The model addresses tools by these ids.
const (
	toolDetect    = "detect_discipline"
	toolExtract   = "extract_workout_data"
	toolValidate  = "validate_workout_completeness"
	toolNormalize = "normalize_workout_data"
	toolSummarize = "generate_workout_summary"
	toolSave      = "save_workout_to_database"
)

const orchestratorSystemPrompt = `You are the workout-logging agent for a fitness coaching app. A user has sent a message that may describe one or more completed workouts. Your job is to process it with the tools provided, in dependency order, for each workout:

1. detect_discipline - classify the workout's discipline from the message text.
2. extract_workout_data - extract the structured workout. Requires step 1.
3. validate_workout_completeness - score and validate the extraction. Requires step 2.
4. normalize_workout_data - ONLY if validation asks for normalization.
5. generate_workout_summary - produce the searchable summary. Requires a validated workout.
6. save_workout_to_database - persist. Requires extraction, validation and summary.

Rules:
- If the message describes MULTIPLE workouts, process each one with its own workout_index: 0 for the first, 1 for the second, and so on, running the full pipeline per index.
- If the message is not a completed workout (a question, a plan for the future, a reflection with nothing loggable), do NOT call save_workout_to_database. Say briefly why you are not logging it.
- If validation rejects a workout, do not try to save it anyway. Report the rejection.
- Never invent exercises, weights or times that are not in the message.`

// toolDefs builds the six tool definitions sent with every orchestration turn.
func toolDefs() []anthropic.ToolDef {
	indexed := func(extra map[string]any, required ...string) json.RawMessage {
		props := map[string]any{
			"workout_index": map[string]any{
				"type":        "integer",
				"description": "zero-based index of the workout within the message; 0 unless the message describes several workouts",
			},
		}
		for k, v := range extra {
			props[k] = v
		}
		schema, _ := json.Marshal(map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		})
		return schema
	}

	messageProp := map[string]any{
		"message": map[string]any{
			"type":        "string",
			"description": "the portion of the user's message describing this workout",
		},
	}

	return []anthropic.ToolDef{
		{
			Name:        toolDetect,
			Description: "Classify the workout discipline (powerlifting, crossfit, running, yoga, ...) from free text.",
			InputSchema: indexed(messageProp, "message"),
		},
		{
			Name:        toolExtract,
			Description: "Extract the structured workout for one discipline. Requires detect_discipline to have run for this index.",
			InputSchema: indexed(messageProp, "message"),
		},
		{
			Name:        toolValidate,
			Description: "Validate completeness of the extracted workout for this index. Takes only the index; the extraction is re-read internally.",
			InputSchema: indexed(nil),
		},
		{
			Name:        toolNormalize,
			Description: "Repair the extracted workout's structure against the discipline schema. Only call when validation requested it.",
			InputSchema: indexed(nil),
		},
		{
			Name:        toolSummarize,
			Description: "Generate the one-paragraph summary of the workout for search and memory.",
			InputSchema: indexed(nil),
		},
		{
			Name:        toolSave,
			Description: "Persist the validated workout. Requires extraction, validation and summary for this index.",
			InputSchema: indexed(nil),
		},
	}
}

const detectSystemPrompt = `You classify workout messages into a single fitness discipline. Respond with JSON only: {"discipline": "...", "confidence": 0.0-1.0, "reasoning": "one sentence"}. The discipline must be one of: %s. Use "general_fitness" when nothing fits.`

func detectSystem() string {
	return fmt.Sprintf(detectSystemPrompt, strings.Join(workout.Disciplines(), ", "))
}

const extractSystemPrompt = `You extract structured workout data from a user's message. Use the record_workout tool to report the extraction. Today's date is %s. Dates in the output use YYYY-MM-DD. Only include what the message supports; leave unknown fields out.`

const extractFallbackSystemPrompt = `You extract structured workout data from a user's message. Respond with a single JSON object only, no prose, no markdown fences. It must conform to this schema:
%s
Today's date is %s. Only include what the message supports.`

const judgeActivitySystemPrompt = `You judge whether a text describes physical activity that was actually performed (as opposed to a plan, a question, or a reflection with no activity detail). Respond with JSON only: {"performed": true|false}.`

const normalizeSystemPrompt = `You repair a structured workout object so it conforms to its discipline's expected schema shape, preserving every piece of real data. Respond with JSON only:
{"workout": {...the repaired workout...}, "valid": true|false, "confidence": 0.0-1.0, "issues": ["..."]}
Set valid=false only when the data cannot represent a real workout at all.`

const summarySystemPrompt = `You write a one-paragraph factual summary of a completed workout for search indexing and coaching memory. Plain text, no JSON, no markdown. Mention discipline, key movements or segments, loads, distances, times and how it felt, when present.`
