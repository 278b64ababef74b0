package backfill

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateNewAndSave(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	s := &State{path: statePath}
	s.MarkProcessed("jan.jsonl")
	s.MarkProcessed("feb.jsonl")
	s.MessagesProcessed = 40
	s.WorkoutsSaved = 25

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !loaded.IsProcessed("jan.jsonl") || !loaded.IsProcessed("feb.jsonl") {
		t.Error("processed files lost on reload")
	}
	if loaded.WorkoutsSaved != 25 {
		t.Errorf("WorkoutsSaved = %d, want 25", loaded.WorkoutsSaved)
	}
}

func TestStateMissingFileStartsFresh(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "missing.json")
	s, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(s.FilesProcessed) != 0 || s.StartedAt.IsZero() {
		t.Errorf("fresh state unexpected: %+v", s)
	}
}

func TestStateIsProcessed(t *testing.T) {
	s := &State{}

	if s.IsProcessed("jan.jsonl") {
		t.Error("jan should not be processed yet")
	}
	s.MarkProcessed("jan.jsonl")
	if !s.IsProcessed("jan.jsonl") {
		t.Error("jan should be processed")
	}
	if s.IsProcessed("feb.jsonl") {
		t.Error("feb should not be processed")
	}
}

func TestStateSaveCreatesDirectories(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	s := &State{path: statePath}
	if err := s.Save(); err != nil {
		t.Fatalf("Save with nested dir failed: %v", err)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not created: %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	got := expandHome("~/test/path")
	want := filepath.Join(home, "test/path")
	if got != want {
		t.Errorf("expandHome(~/test/path) = %q, want %q", got, want)
	}

	got = expandHome("/absolute/path")
	if got != "/absolute/path" {
		t.Errorf("expandHome(/absolute/path) = %q", got)
	}
}
