// Package contract implements the message record store: one message
// per identity, validated mutations, and append-only update/delete
// ledgers readable by the owner.
package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	celeval "github.com/RpGmAx/ronin-mission-5/internal/contract/cel"
	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/internal/events"
	"github.com/RpGmAx/ronin-mission-5/internal/observability"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

// minMessageLen is the minimum message length in bytes.
const minMessageLen = 10

// seedMessage is the record the creating caller holds from construction.
const seedMessage = "I created my CRUD contract"

// Message is one sender's current message, as returned by reads.
type Message struct {
	Sender  identity.Key `json:"sender"`
	Message string       `json:"message"`
}

// Contract is the record store engine. All state is owned exclusively
// by the Contract and mutated under a single mutex, so each operation
// is all-or-nothing: the backend write happens first, and in-memory
// state changes only after it succeeds.
type Contract struct {
	mu      sync.Mutex
	backend physical.Backend

	owner   identity.Key
	records *recordSet
	updates []*physical.UpdateEntry
	deletes []*physical.DeleteEntry

	clock   Clock
	sink    events.Sink
	metrics *observability.Metrics
	eval    *celeval.Evaluator
}

// Option configures a Contract at Open time.
type Option func(*Contract)

// WithClock sets the timestamp source for ledger entries.
func WithClock(clock Clock) Option {
	return func(c *Contract) { c.clock = clock }
}

// WithSink sets the event sink notified after successful mutations.
func WithSink(sink events.Sink) Option {
	return func(c *Contract) { c.sink = sink }
}

// WithMetrics sets the metrics registry operations record into.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Contract) { c.metrics = m }
}

// Open loads contract state from the backend. If the backend holds no
// state yet, creator becomes the owner and the sole initial record
// holder with a fixed seed message; ledgers start empty.
func Open(ctx context.Context, backend physical.Backend, creator identity.Key, opts ...Option) (*Contract, error) {
	c := &Contract{
		backend: backend,
		records: newRecordSet(),
		clock:   systemClock{},
		sink:    events.NopSink{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observability.NewMetrics()
	}

	eval, err := celeval.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("contract: %w", err)
	}
	c.eval = eval

	st, err := backend.Load(ctx)
	if errors.Is(err, physical.ErrNotInitialized) {
		if creator.IsZero() {
			return nil, errors.New("contract: creator key required to initialize")
		}
		now := c.clock.Now()
		st = &physical.State{
			Owner: creator,
			Records: []*physical.Record{{
				Sender:    creator,
				Message:   seedMessage,
				Position:  0,
				CreatedAt: now,
				UpdatedAt: now,
			}},
		}
		if err := backend.Init(ctx, st); err != nil {
			return nil, fmt.Errorf("contract: initialize state: %w", err)
		}
		slog.InfoContext(ctx, "contract initialized",
			"owner", identity.Short(creator))
	} else if err != nil {
		return nil, fmt.Errorf("contract: load state: %w", err)
	}

	c.owner = st.Owner
	c.records.load(st.Records)
	c.updates = append(c.updates, st.Updates...)
	c.deletes = append(c.deletes, st.Deletes...)

	c.metrics.RecordsHeld.Set(float64(c.records.len()))

	slog.DebugContext(ctx, "contract state loaded",
		"owner", identity.Short(c.owner),
		"records", c.records.len(),
		"update_entries", len(c.updates),
		"delete_entries", len(c.deletes))
	return c, nil
}

// Owner returns the identity fixed as owner at construction.
func (c *Contract) Owner() identity.Key {
	return c.owner
}

// CreateMessage stores the caller's first message. The existing-holder
// check runs before the length checks: a holder retrying with an empty
// text still sees ErrAlreadyCreated.
func (c *Contract) CreateMessage(ctx context.Context, caller identity.Key, text string) (err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "create_message",
		attribute.String("sender", identity.Short(caller)))
	defer func() { c.finish(op, "create_message", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.records.contains(caller) {
		return ErrAlreadyCreated
	}
	if err := validateText(text); err != nil {
		return err
	}

	now := c.clock.Now()
	rec := &physical.Record{
		Sender:    caller,
		Message:   text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.records.insert(rec)
	if err := c.backend.CreateRecord(ctx, rec); err != nil {
		c.records.remove(caller)
		return fmt.Errorf("persist record: %w", err)
	}

	c.metrics.RecordsHeld.Set(float64(c.records.len()))
	c.emit(ctx, events.Event{
		Type:      events.MessageCreated,
		Sender:    caller,
		Message:   text,
		Timestamp: now,
	})
	return nil
}

// ReadMessageFrom returns the message held by sender. Pure read.
func (c *Contract) ReadMessageFrom(ctx context.Context, caller, sender identity.Key) (_ string, err error) {
	op, _ := observability.StartOperation(ctx, c.metrics, "read_message",
		attribute.String("sender", identity.Short(sender)))
	defer func() { c.finish(op, "read_message", err) }()
	_ = caller // reads require no authorization

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records.get(sender)
	if !ok {
		return "", ErrSenderNotFound
	}
	return rec.Message, nil
}

// ReadAllMessages returns every current message in roster order.
// Pure read.
func (c *Contract) ReadAllMessages(ctx context.Context, caller identity.Key) (_ []Message, err error) {
	op, _ := observability.StartOperation(ctx, c.metrics, "read_all_messages")
	defer func() { c.finish(op, "read_all_messages", err) }()
	_ = caller

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.records.len() == 0 {
		return nil, ErrNoMessageYet
	}

	msgs := make([]Message, 0, c.records.len())
	for _, rec := range c.records.ordered() {
		msgs = append(msgs, Message{Sender: rec.Sender, Message: rec.Message})
	}
	return msgs, nil
}

// UpdateMessage replaces the caller's message and appends the change to
// the update ledger. The ledger append and the record overwrite are one
// atomic step in the backend.
func (c *Contract) UpdateMessage(ctx context.Context, caller identity.Key, text string) (err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "update_message",
		attribute.String("sender", identity.Short(caller)))
	defer func() { c.finish(op, "update_message", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records.get(caller)
	if !ok {
		return ErrSenderNotFound
	}
	if err := validateText(text); err != nil {
		return err
	}
	if text == rec.Message {
		return ErrMessageUnchanged
	}

	now := c.clock.Now()
	entry := &physical.UpdateEntry{
		Sender:     caller,
		OldMessage: rec.Message,
		NewMessage: text,
		Timestamp:  now,
	}
	updated := *rec
	updated.Message = text
	updated.UpdatedAt = now

	if err := c.backend.UpdateRecord(ctx, &updated, entry); err != nil {
		return fmt.Errorf("persist update: %w", err)
	}

	rec.Message = text
	rec.UpdatedAt = now
	c.updates = append(c.updates, entry)

	c.metrics.LedgerEntries.WithLabelValues("update").Inc()
	c.emit(ctx, events.Event{
		Type:      events.MessageUpdated,
		Sender:    caller,
		Message:   text,
		Timestamp: now,
	})
	return nil
}

// DeleteMessage removes the caller's message and appends the deletion
// to the delete ledger, recording the pre-delete text.
func (c *Contract) DeleteMessage(ctx context.Context, caller identity.Key) (err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "delete_message",
		attribute.String("sender", identity.Short(caller)))
	defer func() { c.finish(op, "delete_message", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records.get(caller)
	if !ok {
		return ErrSenderNotFound
	}

	now := c.clock.Now()
	entry := &physical.DeleteEntry{
		Sender:    caller,
		Message:   rec.Message,
		Timestamp: now,
	}

	if err := c.backend.DeleteRecord(ctx, caller, entry); err != nil {
		return fmt.Errorf("persist delete: %w", err)
	}

	c.records.remove(caller)
	c.deletes = append(c.deletes, entry)

	c.metrics.RecordsHeld.Set(float64(c.records.len()))
	c.metrics.LedgerEntries.WithLabelValues("delete").Inc()
	c.emit(ctx, events.Event{
		Type:      events.MessageDeleted,
		Sender:    caller,
		Timestamp: now,
	})
	return nil
}

// UpdateHistory returns a copy of the full update ledger in append
// order. Owner only.
func (c *Contract) UpdateHistory(ctx context.Context, caller identity.Key) (_ []physical.UpdateEntry, err error) {
	op, _ := observability.StartOperation(ctx, c.metrics, "update_history")
	defer func() { c.finish(op, "update_history", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireOwner(caller, c.owner); err != nil {
		return nil, err
	}
	out := make([]physical.UpdateEntry, len(c.updates))
	for i, e := range c.updates {
		out[i] = *e
	}
	return out, nil
}

// DeleteHistory returns a copy of the full delete ledger in append
// order. Owner only.
func (c *Contract) DeleteHistory(ctx context.Context, caller identity.Key) (_ []physical.DeleteEntry, err error) {
	op, _ := observability.StartOperation(ctx, c.metrics, "delete_history")
	defer func() { c.finish(op, "delete_history", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireOwner(caller, c.owner); err != nil {
		return nil, err
	}
	out := make([]physical.DeleteEntry, len(c.deletes))
	for i, e := range c.deletes {
		out[i] = *e
	}
	return out, nil
}

// SearchUpdates returns the update-ledger entries matching a CEL
// expression, in append order. An empty expression matches everything.
// Owner only.
func (c *Contract) SearchUpdates(ctx context.Context, caller identity.Key, expression string) (_ []physical.UpdateEntry, err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "search_updates")
	defer func() { c.finish(op, "search_updates", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireOwner(caller, c.owner); err != nil {
		return nil, err
	}
	if expression != "" {
		if err := c.eval.ValidateExpression(ctx, expression); err != nil {
			return nil, err
		}
	}

	var out []physical.UpdateEntry
	for _, e := range c.updates {
		if expression != "" {
			match, err := c.eval.MatchUpdate(ctx, expression, e)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

// SearchDeletes returns the delete-ledger entries matching a CEL
// expression, in append order. An empty expression matches everything.
// Owner only.
func (c *Contract) SearchDeletes(ctx context.Context, caller identity.Key, expression string) (_ []physical.DeleteEntry, err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "search_deletes")
	defer func() { c.finish(op, "search_deletes", err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := requireOwner(caller, c.owner); err != nil {
		return nil, err
	}
	if expression != "" {
		if err := c.eval.ValidateExpression(ctx, expression); err != nil {
			return nil, err
		}
	}

	var out []physical.DeleteEntry
	for _, e := range c.deletes {
		if expression != "" {
			match, err := c.eval.MatchDelete(ctx, expression, e)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

// Stats returns backend storage statistics.
func (c *Contract) Stats(ctx context.Context) (*physical.Stats, error) {
	return c.backend.Stats(ctx)
}

// Close closes the underlying backend.
func (c *Contract) Close() error {
	return c.backend.Close()
}

// requireOwner is the owner gate for ledger reads. Pure.
func requireOwner(caller, owner identity.Key) error {
	if !identity.Equal(caller, owner) {
		return ErrOwnerOnly
	}
	return nil
}

// validateText enforces the message constraints shared by create and
// update: non-empty, then at least minMessageLen bytes.
func validateText(text string) error {
	if len(text) == 0 {
		return ErrMessageEmpty
	}
	if len(text) < minMessageLen {
		return ErrMessageTooShort
	}
	return nil
}

// emit notifies the sink. Fire-and-forget: the operation result never
// depends on delivery.
func (c *Contract) emit(ctx context.Context, ev events.Event) {
	c.metrics.EventsEmitted.WithLabelValues(string(ev.Type)).Inc()
	c.sink.Emit(ctx, ev)
}

func (c *Contract) finish(op *observability.Operation, name string, err error) {
	if err != nil {
		c.metrics.ErrorsTotal.WithLabelValues(name, errType(err)).Inc()
	}
	op.End(err)
}

// errType maps an error to a stable, low-cardinality metric label.
func errType(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyCreated):
		return "already_created"
	case errors.Is(err, ErrSenderNotFound):
		return "sender_not_found"
	case errors.Is(err, ErrMessageEmpty):
		return "message_empty"
	case errors.Is(err, ErrMessageTooShort):
		return "message_too_short"
	case errors.Is(err, ErrNoMessageYet):
		return "no_message_yet"
	case errors.Is(err, ErrMessageUnchanged):
		return "message_unchanged"
	case errors.Is(err, ErrOwnerOnly):
		return "owner_only"
	default:
		return "internal"
	}
}
