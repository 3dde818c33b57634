package contracts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestEventStreamRoundTripNDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	stream := NewEventStream(buf)

	event := Event{
		Type:      EventTypeCheckFinished,
		RunID:     "run-1",
		CheckName: "unit",
		QueuePos:  1,
		Result: &CheckResult{
			Name:     "unit",
			Command:  []string{"go", "test", "./..."},
			Status:   CheckStatusFailed,
			ExitCode: 1,
			Duration: 1200 * time.Millisecond,
			Reasons:  []string{"exit code 1, expected 0"},
		},
		Timestamp: time.Date(2026, 2, 10, 2, 0, 0, 0, time.UTC),
	}
	if err := stream.Write(event); err != nil {
		t.Fatalf("write event: %v", err)
	}

	decoder := NewEventDecoder(bytes.NewReader(buf.Bytes()))
	decoded, err := decoder.Next()
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if decoded.RunID != event.RunID || decoded.CheckName != event.CheckName || decoded.QueuePos != event.QueuePos {
		t.Fatalf("unexpected decoded event: %#v", decoded)
	}
	if decoded.Result == nil || decoded.Result.Status != CheckStatusFailed || decoded.Result.Duration != 1200*time.Millisecond {
		t.Fatalf("unexpected decoded result: %#v", decoded.Result)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Fatalf("expected timestamp %s, got %s", event.Timestamp, decoded.Timestamp)
	}
	if _, err := decoder.Next(); err != io.EOF {
		t.Fatalf("expected EOF after one event, got %v", err)
	}
}

func TestStreamEventSinkFillsTimestamp(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := NewStreamEventSink(buf)

	if err := sink.Emit(context.Background(), Event{Type: EventTypeRunStarted, RunID: "run-2"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	decoded, err := ParseEventJSONLLine(bytes.TrimSpace(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decoded.Timestamp.IsZero() || decoded.Timestamp.Year() < 2000 {
		t.Fatalf("expected timestamp to be set, got %s", decoded.Timestamp)
	}
}

type recordingSink struct {
	events []Event
	err    error
	closed bool
}

func (r *recordingSink) Emit(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestFanoutEventSinkDeliversToAllAndJoinsErrors(t *testing.T) {
	first := &recordingSink{err: errors.New("redis down")}
	second := &recordingSink{}
	fanout := NewFanoutEventSink(first, nil, second)

	err := fanout.Emit(context.Background(), Event{Type: EventTypeRunStarted})
	if err == nil || !strings.Contains(err.Error(), "redis down") {
		t.Fatalf("expected joined sink error, got %v", err)
	}
	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both sinks to receive the event, got %d and %d", len(first.events), len(second.events))
	}

	if err := fanout.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !first.closed || !second.closed {
		t.Fatalf("expected closers to be closed")
	}
}

func TestEventSinkFuncAdapter(t *testing.T) {
	var got EventType
	sink := EventSinkFunc(func(_ context.Context, event Event) error {
		got = event.Type
		return nil
	})
	if err := sink.Emit(context.Background(), Event{Type: EventTypeRunFinished}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if got != EventTypeRunFinished {
		t.Fatalf("expected run_finished, got %q", got)
	}
}
