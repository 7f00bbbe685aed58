package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

type countingSink struct {
	n int
}

func (s *countingSink) Emit(context.Context, Event) { s.n++ }

func TestMultiSinkFansOut(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{}
	m := MultiSink{a, b}

	m.Emit(context.Background(), Event{Type: MessageCreated})
	m.Emit(context.Background(), Event{Type: MessageDeleted})

	if a.n != 2 || b.n != 2 {
		t.Errorf("sink counts = %d, %d, want 2, 2", a.n, b.n)
	}
}

func TestSlogSink(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	sink := NewSlogSink(logger)
	sink.Emit(context.Background(), Event{Type: MessageUpdated, Sender: testKey(0xAB), Timestamp: 99})

	out := buf.String()
	if !strings.Contains(out, "message.updated") {
		t.Errorf("log output missing event type: %q", out)
	}
	if !strings.Contains(out, "ab00000000000000") {
		t.Errorf("log output missing sender: %q", out)
	}
}

func TestSlogSinkNilLogger(t *testing.T) {
	sink := NewSlogSink(nil)
	sink.Emit(context.Background(), Event{Type: MessageCreated})
}

func TestEventJSON(t *testing.T) {
	ev := Event{Type: MessageCreated, Sender: testKey(1), Message: "hello world", Timestamp: 42}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"type":"message.created"`) {
		t.Errorf("JSON = %s", data)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != ev {
		t.Errorf("round trip = %+v, want %+v", got, ev)
	}

	// Delete events omit the message field entirely.
	data, err = json.Marshal(Event{Type: MessageDeleted, Sender: testKey(1), Timestamp: 43})
	if err != nil {
		t.Fatalf("Marshal delete: %v", err)
	}
	if strings.Contains(string(data), `"message"`) {
		t.Errorf("delete event JSON carries a message: %s", data)
	}
}
