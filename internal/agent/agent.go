package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/formacoach/tally/internal/anthropic"
)

// Agent orchestrates one Extraction Run: it hands the message to the model
// together with the workout tools and executes the tool calls the model
// makes, in the order it makes them.
type Agent struct {
	model      ModelClient
	store      Saver
	bus        Publisher
	logger     *slog.Logger
	maxTurns   int
	classifier Classifier
}

func New(model ModelClient, store Saver, bus Publisher, logger *slog.Logger, maxTurns int) *Agent {
	if maxTurns <= 0 {
		maxTurns = 12
	}
	return &Agent{
		model:      model,
		store:      store,
		bus:        bus,
		logger:     logger,
		maxTurns:   maxTurns,
		classifier: NewPatternClassifier(),
	}
}

// passOutcome is what one full conversation pass produced.
type passOutcome struct {
	result          *RunResult
	finalText       string
	successfulTools int
}

// Run processes one inbound message end to end. At most one retry: only when
// the first pass saved nothing, ran no tool successfully, raised no blocking
// flags, and ended in text that reads as an unfinished workflow rather than a
// refusal.
func (a *Agent) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, fmt.Errorf("empty message")
	}
	if input.Now.IsZero() {
		input.Now = time.Now()
	}

	first, err := a.runPass(ctx, input, input.Message)
	if err != nil {
		return nil, err
	}
	if !a.shouldRetry(first) {
		return first.result, nil
	}

	a.logger.Info("retrying incomplete run", "user", input.UserID)
	second, err := a.runPass(ctx, input, input.Message+retryDirective)
	if err != nil {
		a.logger.Warn("retry pass failed, keeping original outcome", "error", err)
		return first.result, nil
	}
	// A retry that also ran nothing successfully adds no information; the
	// original outcome stands.
	if second.successfulTools == 0 {
		return first.result, nil
	}
	return second.result, nil
}

func (a *Agent) shouldRetry(p *passOutcome) bool {
	if p.result.Success || p.successfulTools > 0 || len(p.result.BlockingFlags) > 0 {
		return false
	}
	return a.classifier.Classify(p.finalText) == ResponseIncomplete
}

// runPass runs one complete model conversation over a fresh Result Store.
func (a *Agent) runPass(ctx context.Context, input RunInput, message string) (*passOutcome, error) {
	rc := &runContext{
		input:   input,
		results: NewResults(),
		now:     input.Now,
	}

	messages := []anthropic.Message{anthropic.TextMessage("user", message)}
	tools := toolDefs()

	outcome := &passOutcome{}
	for turn := 0; turn < a.maxTurns; turn++ {
		resp, err := a.model.Messages(ctx, orchestratorSystemPrompt, messages, tools, 4096)
		if err != nil {
			return nil, fmt.Errorf("model turn %d: %w", turn, err)
		}

		messages = append(messages, anthropic.Message{Role: "assistant", Content: resp.Content})

		uses := resp.ToolUses()
		if len(uses) == 0 {
			outcome.finalText = resp.Text()
			break
		}

		// Tool results go back in one user message, in call order.
		var results []anthropic.ContentBlock
		for _, use := range uses {
			out, ok := a.dispatch(ctx, rc, use)
			if ok {
				outcome.successfulTools++
			}
			results = append(results, anthropic.ToolResultBlock(use.ID, out, !ok))
		}
		messages = append(messages, anthropic.Message{Role: "user", Content: results})

		if turn == a.maxTurns-1 {
			a.logger.Warn("turn budget exhausted", "user", input.UserID, "turns", a.maxTurns)
		}
	}

	outcome.result = a.buildResult(rc, outcome.finalText)
	a.logger.Info("run pass complete",
		"user", input.UserID,
		"success", outcome.result.Success,
		"tools_ok", outcome.successfulTools,
		"workouts", len(outcome.result.AllWorkouts),
	)
	return outcome, nil
}

// buildResult assembles the caller-facing outcome from whatever the tools
// wrote into the Result Store. Saved workouts decide success; verdicts and
// final text explain failure.
func (a *Agent) buildResult(rc *runContext, finalText string) *RunResult {
	result := &RunResult{}

	for i := 0; i < rc.results.Len(roleSave); i++ {
		v, ok := rc.results.ReadAt(roleSave, i)
		if !ok {
			continue
		}
		save, ok := v.(*SaveResult)
		if !ok || !save.Saved {
			continue
		}
		result.AllWorkouts = append(result.AllWorkouts, WorkoutOutcome{
			WorkoutID:  save.WorkoutID.String(),
			Discipline: save.Discipline,
			Saved:      true,
		})
		if result.WorkoutID == "" {
			result.WorkoutID = save.WorkoutID.String()
			result.Discipline = save.Discipline
		}
	}
	result.Success = len(result.AllWorkouts) > 0

	seen := map[string]bool{}
	for i := 0; i < rc.results.Len(roleValidation); i++ {
		v, ok := rc.results.ReadAt(roleValidation, i)
		if !ok {
			continue
		}
		verdict, ok := v.(*Verdict)
		if !ok {
			continue
		}
		if result.Confidence == 0 || verdict.Confidence > result.Confidence {
			result.Confidence = verdict.Confidence
		}
		for _, f := range verdict.BlockingFlags {
			if !seen[f] {
				seen[f] = true
				result.BlockingFlags = append(result.BlockingFlags, f)
			}
		}
		if !result.Success && result.Reason == "" && verdict.Reason != "" {
			result.Reason = verdict.Reason
		}
	}

	if !result.Success && result.Reason == "" {
		if t := strings.TrimSpace(finalText); t != "" {
			result.Reason = t
		} else {
			result.Reason = "no workout was saved"
		}
	}
	return result
}

// spawn runs a detached best-effort side effect. It outlives the request
// context so a client disconnect cannot abort post-save work, and failures
// surface only in the log.
func (a *Agent) spawn(ctx context.Context, name string, fn func(context.Context) error) {
	detached := context.WithoutCancel(ctx)
	errs := make(chan error, 1)
	go func() {
		errs <- fn(detached)
	}()
	go func() {
		if err := <-errs; err != nil {
			a.logger.Warn("side effect failed", "effect", name, "error", err)
		}
	}()
}
