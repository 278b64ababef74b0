package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMessages_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key test-key, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("expected anthropic-version 2023-06-01, got %q", r.Header.Get("anthropic-version"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}
		if req.System != "you are a test" {
			t.Errorf("expected system prompt, got %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content[0].Text != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "world"}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	resp, err := c.Messages(context.Background(), "you are a test", []Message{TextMessage("user", "hello")}, nil, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "world" {
		t.Errorf("expected 'world', got %q", resp.Text())
	}
	if len(resp.ToolUses()) != 0 {
		t.Errorf("expected no tool uses, got %d", len(resp.ToolUses()))
	}
}

func TestMessages_ToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Name != "detect_discipline" {
			t.Errorf("expected detect_discipline tool in request, got %+v", req.Tools)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "Let me classify that."},
				{
					"type":  "tool_use",
					"id":    "toolu_01",
					"name":  "detect_discipline",
					"input": map[string]any{"message": "ran 5k"},
				},
			},
			"stop_reason": "tool_use",
		})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	tools := []ToolDef{{Name: "detect_discipline", InputSchema: json.RawMessage(`{"type":"object"}`)}}
	resp, err := c.Messages(context.Background(), "", []Message{TextMessage("user", "ran 5k")}, tools, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	uses := resp.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("expected 1 tool use, got %d", len(uses))
	}
	if uses[0].Name != "detect_discipline" || uses[0].ID != "toolu_01" {
		t.Errorf("unexpected tool use: %+v", uses[0])
	}

	var input map[string]any
	if err := json.Unmarshal(uses[0].Input, &input); err != nil {
		t.Fatalf("tool input not valid JSON: %v", err)
	}
	if input["message"] != "ran 5k" {
		t.Errorf("unexpected tool input: %v", input)
	}
}

func TestMessages_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "invalid_request_error",
				"message": "max_tokens is too large",
			},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	_, err := c.Messages(context.Background(), "", []Message{TextMessage("user", "hi")}, nil, 100)
	if err == nil {
		t.Fatal("expected error for API error response")
	}
}

func TestMessages_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"content": []any{}, "stop_reason": "end_turn"})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	_, err := c.Messages(context.Background(), "", []Message{TextMessage("user", "hi")}, nil, 100)
	if err == nil {
		t.Fatal("expected error for empty content response")
	}
}
