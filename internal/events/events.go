// Package events carries contract lifecycle notifications.
//
// Emission is fire-and-forget: sinks never return errors to the caller,
// and a failing or slow sink must not affect the operation that emitted
// the event.
package events

import (
	"context"
	"log/slog"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

// Type identifies an event kind.
type Type string

const (
	MessageCreated Type = "message.created"
	MessageUpdated Type = "message.updated"
	MessageDeleted Type = "message.deleted"
)

// Event is a single contract lifecycle notification.
// Message carries the created message for MessageCreated, the new
// message for MessageUpdated, and is empty for MessageDeleted.
type Event struct {
	Type      Type         `json:"type"`
	Sender    identity.Key `json:"sender"`
	Message   string       `json:"message,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// Sink receives emitted events. Implementations must not block the
// caller and must swallow their own failures.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// SlogSink logs each event through a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink that logs events. A nil logger uses the
// default logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, ev Event) {
	s.logger.InfoContext(ctx, "contract event",
		"type", string(ev.Type),
		"sender", identity.Short(ev.Sender),
		"timestamp", ev.Timestamp,
	)
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}
