// Package backfill imports workout history from exported coach-chat JSONL
// files, running each message through the extraction agent. Imports are
// resumable: processed files are tracked in a state file.
package backfill

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// HistoryEntry is one line of an exported chat history file.
type HistoryEntry struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Source    string `json:"source,omitempty"`    // "command" or "natural"
	Timestamp string `json:"timestamp,omitempty"` // RFC3339 or YYYY-MM-DD
}

// SentAt parses the entry's timestamp for use as the run's temporal context.
// Unparseable or missing timestamps fall back to now.
func (e *HistoryEntry) SentAt(now time.Time) time.Time {
	if e.Timestamp == "" {
		return now
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, e.Timestamp); err == nil {
			return t
		}
	}
	return now
}

// ParseHistoryFile parses a JSONL history export. Malformed lines are skipped,
// not fatal: exports from older app versions carry extra line types.
func ParseHistoryFile(path string) ([]HistoryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var entries []HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Message == "" {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return entries, nil
}
