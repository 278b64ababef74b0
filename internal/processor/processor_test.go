package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/formacoach/tally/internal/agent"
	"github.com/formacoach/tally/internal/bus"
)

type fakeRunner struct {
	result *agent.RunResult
	err    error
	calls  []agent.RunInput
}

func (f *fakeRunner) Run(_ context.Context, input agent.RunInput) (*agent.RunResult, error) {
	f.calls = append(f.calls, input)
	return f.result, f.err
}

type fakePublisher struct {
	subjects []string
	payloads []any
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func testProcessor(runner *fakeRunner, pub *fakePublisher) *Processor {
	return New(runner, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func event(t *testing.T, evt bus.MessageReceivedEvent) []byte {
	t.Helper()
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHandleMessageReceived(t *testing.T) {
	runner := &fakeRunner{result: &agent.RunResult{Success: true, WorkoutID: "w1", Discipline: "running"}}
	pub := &fakePublisher{}
	p := testProcessor(runner, pub)

	p.HandleMessageReceived(bus.SubjectMessageReceived, event(t, bus.MessageReceivedEvent{
		UserID:  "u1",
		Message: "ran 5k this morning",
		Source:  "natural",
	}))

	if len(runner.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(runner.calls))
	}
	if runner.calls[0].Source != agent.SourceNatural {
		t.Errorf("source = %q, want natural", runner.calls[0].Source)
	}
	if len(pub.subjects) != 0 {
		t.Errorf("published %v on success, want nothing", pub.subjects)
	}
}

func TestHandleMessageReceivedCommandSource(t *testing.T) {
	runner := &fakeRunner{result: &agent.RunResult{Success: true}}
	p := testProcessor(runner, &fakePublisher{})

	p.HandleMessageReceived(bus.SubjectMessageReceived, event(t, bus.MessageReceivedEvent{
		UserID:  "u1",
		Message: "/log-workout squats 5x5",
		Source:  "command",
	}))

	if runner.calls[0].Source != agent.SourceCommand {
		t.Errorf("source = %q, want command", runner.calls[0].Source)
	}
}

func TestHandleMessageReceivedPublishesFailure(t *testing.T) {
	runner := &fakeRunner{result: &agent.RunResult{
		Success:       false,
		Reason:        "no exercises to record",
		BlockingFlags: []string{"missing_exercises"},
	}}
	pub := &fakePublisher{}
	p := testProcessor(runner, pub)

	p.HandleMessageReceived(bus.SubjectMessageReceived, event(t, bus.MessageReceivedEvent{
		UserID:  "u1",
		Message: "so sore today",
	}))

	if len(pub.subjects) != 1 || pub.subjects[0] != bus.SubjectExtractionFailed {
		t.Fatalf("published %v, want [%s]", pub.subjects, bus.SubjectExtractionFailed)
	}
	evt, ok := pub.payloads[0].(bus.ExtractionFailedEvent)
	if !ok {
		t.Fatalf("payload = %T", pub.payloads[0])
	}
	if evt.Reason != "no exercises to record" || len(evt.BlockingFlags) != 1 {
		t.Errorf("unexpected event: %+v", evt)
	}
}

func TestHandleMessageReceivedRunError(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("model unavailable")}
	pub := &fakePublisher{}
	p := testProcessor(runner, pub)

	p.HandleMessageReceived(bus.SubjectMessageReceived, event(t, bus.MessageReceivedEvent{
		UserID:  "u1",
		Message: "ran 5k",
	}))

	if len(pub.subjects) != 1 || pub.subjects[0] != bus.SubjectExtractionFailed {
		t.Fatalf("published %v, want failure event", pub.subjects)
	}
}

func TestHandleMessageReceivedBadPayloads(t *testing.T) {
	runner := &fakeRunner{result: &agent.RunResult{Success: true}}
	p := testProcessor(runner, &fakePublisher{})

	p.HandleMessageReceived(bus.SubjectMessageReceived, []byte("not json"))
	p.HandleMessageReceived(bus.SubjectMessageReceived, event(t, bus.MessageReceivedEvent{UserID: "u1"}))
	p.HandleMessageReceived(bus.SubjectMessageReceived, event(t, bus.MessageReceivedEvent{Message: "ran 5k"}))

	if len(runner.calls) != 0 {
		t.Errorf("runner called %d times for bad payloads, want 0", len(runner.calls))
	}
}
