package backfill

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/formacoach/tally/internal/agent"
)

type fakeAgent struct {
	calls   []agent.RunInput
	success bool
}

func (f *fakeAgent) Run(_ context.Context, input agent.RunInput) (*agent.RunResult, error) {
	f.calls = append(f.calls, input)
	if f.success {
		return &agent.RunResult{Success: true, AllWorkouts: []agent.WorkoutOutcome{{Saved: true}}}, nil
	}
	return &agent.RunResult{Success: false, Reason: "nothing loggable"}, nil
}

func writeHistory(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseHistoryFile(t *testing.T) {
	dir := t.TempDir()
	path := writeHistory(t, dir, "export.jsonl", `
{"user_id":"u1","message":"ran 5k","timestamp":"2026-03-01"}
not json at all
{"user_id":"u1","message":""}
{"user_id":"u2","message":"/log-workout squats 5x5","source":"command","timestamp":"2026-03-02T07:30:00Z"}
`)

	entries, err := ParseHistoryFile(path)
	if err != nil {
		t.Fatalf("ParseHistoryFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("parsed %d entries, want 2 (malformed and empty skipped)", len(entries))
	}
	if entries[1].Source != "command" {
		t.Errorf("source = %q, want command", entries[1].Source)
	}
}

func TestHistoryEntrySentAt(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		timestamp string
		want      time.Time
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-03-02T07:30:00Z", time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)},
		{"", now},
		{"garbage", now},
	}
	for _, tc := range cases {
		e := HistoryEntry{Timestamp: tc.timestamp}
		if got := e.SentAt(now); !got.Equal(tc.want) {
			t.Errorf("SentAt(%q) = %v, want %v", tc.timestamp, got, tc.want)
		}
	}
}

func TestRunnerImportsHistory(t *testing.T) {
	dir := t.TempDir()
	writeHistory(t, dir, "a.jsonl", `{"user_id":"u1","message":"ran 5k","timestamp":"2026-03-01"}
{"user_id":"u1","message":"bench day, 3x8 at 185"}
`)

	fake := &fakeAgent{success: true}
	r := NewRunner(Config{
		Dir:       dir,
		StatePath: filepath.Join(dir, "state.json"),
	}, fake, testLogger())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("agent called %d times, want 2", len(fake.calls))
	}
	// The entry's timestamp becomes the run's temporal context.
	if fake.calls[0].Now.Year() != 2026 || fake.calls[0].Now.Month() != 3 {
		t.Errorf("Now = %v, want March 2026", fake.calls[0].Now)
	}
}

func TestRunnerResumesAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeHistory(t, dir, "a.jsonl", `{"user_id":"u1","message":"ran 5k"}`)
	statePath := filepath.Join(dir, "state.json")

	fake := &fakeAgent{success: true}
	r := NewRunner(Config{Dir: dir, StatePath: statePath}, fake, testLogger())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Second run over the same directory must skip the processed file.
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Errorf("agent called %d times across runs, want 1", len(fake.calls))
	}
}

func TestRunnerDryRun(t *testing.T) {
	dir := t.TempDir()
	writeHistory(t, dir, "a.jsonl", `{"user_id":"u1","message":"ran 5k"}`)

	fake := &fakeAgent{}
	r := NewRunner(Config{
		Dir:       dir,
		StatePath: filepath.Join(dir, "state.json"),
		DryRun:    true,
	}, fake, testLogger())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("agent called %d times in dry run, want 0", len(fake.calls))
	}
}

func TestRunnerLimit(t *testing.T) {
	dir := t.TempDir()
	writeHistory(t, dir, "a.jsonl", `{"user_id":"u1","message":"one"}
{"user_id":"u1","message":"two"}
{"user_id":"u1","message":"three"}
`)

	fake := &fakeAgent{success: true}
	r := NewRunner(Config{
		Dir:       dir,
		StatePath: filepath.Join(dir, "state.json"),
		Limit:     2,
	}, fake, testLogger())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Errorf("agent called %d times, want 2 (limit)", len(fake.calls))
	}
}

func TestRunnerUserOverride(t *testing.T) {
	dir := t.TempDir()
	writeHistory(t, dir, "a.jsonl", `{"message":"ran 5k"}`)

	fake := &fakeAgent{success: true}
	r := NewRunner(Config{
		Dir:       dir,
		StatePath: filepath.Join(dir, "state.json"),
		UserID:    "override-user",
	}, fake, testLogger())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.calls) != 1 || fake.calls[0].UserID != "override-user" {
		t.Errorf("calls = %+v, want one call as override-user", fake.calls)
	}
}
