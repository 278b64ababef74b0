// Package bus is the NATS client for tally's event side channels: inbound
// coach messages and outbound workout signals.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects tally publishes and subscribes to.
const (
	SubjectMessageReceived  = "coach.message.received"
	SubjectWorkoutSaved     = "coach.workout.saved"
	SubjectExtractionFailed = "coach.extraction.failed"
)

// MessageReceivedEvent is an inbound coach message that may describe one or
// more workouts.
type MessageReceivedEvent struct {
	UserID     string `json:"user_id"`
	Message    string `json:"message"`
	Source     string `json:"source,omitempty"` // "command" or "natural"
	TemplateID string `json:"template_id,omitempty"`
}

// ExtractionFailedEvent reports a run that produced no saved workout, so the
// coach surface can tell the user what was missing.
type ExtractionFailedEvent struct {
	UserID        string   `json:"user_id"`
	Reason        string   `json:"reason,omitempty"`
	BlockingFlags []string `json:"blocking_flags,omitempty"`
}

// WorkoutSavedEvent triggers downstream derived records (streaks, volume
// aggregates, program progress) and the embedding backfill for search.
type WorkoutSavedEvent struct {
	WorkoutID  string  `json:"workout_id"`
	UserID     string  `json:"user_id"`
	Discipline string  `json:"discipline"`
	Date       string  `json:"date,omitempty"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary,omitempty"`
	TemplateID string  `json:"template_id,omitempty"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
