package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/formacoach/tally/internal/agent"
)

// Config holds the import command configuration.
type Config struct {
	Dir        string // directory of *.jsonl exports
	SingleFile string // process a single file only
	UserID     string // override the user id on every entry
	StatePath  string // state file location; empty uses the default
	DryRun     bool   // parse and count, never run the agent
	Limit      int    // stop after this many messages; 0 means no limit
}

// Runner drives the history import.
type Runner struct {
	cfg    Config
	agent  agentRunner
	logger *slog.Logger
}

type agentRunner interface {
	Run(ctx context.Context, input agent.RunInput) (*agent.RunResult, error)
}

func NewRunner(cfg Config, a agentRunner, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, agent: a, logger: logger}
}

// Run executes the import, saving state after every file so an interrupted
// run resumes where it stopped.
func (r *Runner) Run(ctx context.Context) error {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("history files discovered", "files", len(files))

	processed := 0
	for _, path := range files {
		if state.IsProcessed(path) {
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("import interrupted, saving state")
			_ = state.Save()
			return ctx.Err()
		default:
		}

		entries, err := ParseHistoryFile(path)
		if err != nil {
			r.logger.Warn("failed to parse history file", "path", path, "error", err)
			state.AddError(fmt.Sprintf("parse %s: %v", path, err))
			continue
		}
		r.logger.Info("processing file", "path", path, "messages", len(entries))

		done, err := r.processEntries(ctx, state, entries, &processed)
		if err != nil {
			_ = state.Save()
			return err
		}

		state.MarkProcessed(path)
		if err := state.Save(); err != nil {
			r.logger.Warn("failed to save state", "error", err)
		}
		if done {
			break
		}
	}

	r.logger.Info("import complete",
		"messages", state.MessagesProcessed,
		"saved", state.WorkoutsSaved,
		"skipped", state.Skipped,
		"errors", len(state.Errors),
	)
	return state.Save()
}

// processEntries runs one file's entries. The bool reports whether the
// message limit was reached.
func (r *Runner) processEntries(ctx context.Context, state *State, entries []HistoryEntry, processed *int) (bool, error) {
	now := time.Now()
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
		if r.cfg.Limit > 0 && *processed >= r.cfg.Limit {
			return true, nil
		}

		userID := entry.UserID
		if r.cfg.UserID != "" {
			userID = r.cfg.UserID
		}
		if userID == "" {
			state.Skipped++
			continue
		}

		*processed++
		state.MessagesProcessed++

		if r.cfg.DryRun {
			continue
		}

		source := agent.SourceNatural
		if entry.Source == string(agent.SourceCommand) {
			source = agent.SourceCommand
		}

		result, err := r.agent.Run(ctx, agent.RunInput{
			UserID:  userID,
			Message: entry.Message,
			Source:  source,
			Now:     entry.SentAt(now),
		})
		if err != nil {
			r.logger.Error("extraction failed", "user", userID, "error", err)
			state.AddError(fmt.Sprintf("extract for %s: %v", userID, err))
			continue
		}
		if result.Success {
			state.WorkoutsSaved += len(result.AllWorkouts)
		} else {
			state.Skipped++
		}
	}
	return false, nil
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		return []string{r.cfg.SingleFile}, nil
	}
	if r.cfg.Dir == "" {
		return nil, fmt.Errorf("no history directory configured")
	}

	dirEntries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range dirEntries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		files = append(files, filepath.Join(r.cfg.Dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
