// Package processor bridges the NATS side channel to the extraction agent:
// inbound coach messages become extraction runs, failed runs become failure
// events for the coach surface.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/formacoach/tally/internal/agent"
	"github.com/formacoach/tally/internal/bus"
)

// Runner runs one extraction for one inbound message.
type Runner interface {
	Run(ctx context.Context, input agent.RunInput) (*agent.RunResult, error)
}

// Publisher emits processor events.
type Publisher interface {
	Publish(subject string, data any) error
}

type Processor struct {
	runner Runner
	bus    Publisher
	logger *slog.Logger
}

func New(runner Runner, pub Publisher, logger *slog.Logger) *Processor {
	return &Processor{runner: runner, bus: pub, logger: logger}
}

// HandleMessageReceived is the NATS handler for coach.message.received.
// Handler errors never propagate to NATS; a bad message is logged and dropped.
func (p *Processor) HandleMessageReceived(subject string, data []byte) {
	ctx := context.Background()

	var evt bus.MessageReceivedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse message event", "subject", subject, "error", err)
		return
	}
	if evt.UserID == "" || evt.Message == "" {
		p.logger.Warn("message event missing user or message", "user", evt.UserID)
		return
	}

	source := agent.SourceNatural
	if evt.Source == string(agent.SourceCommand) {
		source = agent.SourceCommand
	}

	p.logger.Info("processing coach message", "user", evt.UserID, "source", source)

	result, err := p.runner.Run(ctx, agent.RunInput{
		UserID:     evt.UserID,
		Message:    evt.Message,
		Source:     source,
		TemplateID: evt.TemplateID,
	})
	if err != nil {
		p.logger.Error("extraction run failed", "user", evt.UserID, "error", err)
		p.publishFailure(evt.UserID, err.Error(), nil)
		return
	}

	if !result.Success {
		p.logger.Info("nothing saved for message",
			"user", evt.UserID,
			"reason", result.Reason,
			"blocking_flags", result.BlockingFlags,
		)
		p.publishFailure(evt.UserID, result.Reason, result.BlockingFlags)
		return
	}

	p.logger.Info("message processed",
		"user", evt.UserID,
		"workouts", len(result.AllWorkouts),
		"discipline", result.Discipline,
	)
}

func (p *Processor) publishFailure(userID, reason string, flags []string) {
	evt := bus.ExtractionFailedEvent{
		UserID:        userID,
		Reason:        reason,
		BlockingFlags: flags,
	}
	if err := p.bus.Publish(bus.SubjectExtractionFailed, evt); err != nil {
		p.logger.Warn("failed to publish extraction failure", "user", userID, "error", err)
	}
}
