// Package memory provides an in-process contract state backend.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

func init() {
	physical.Register("memory", NewFactory, nil)
}

// NewFactory creates a new in-memory backend. The configuration map is unused.
func NewFactory(_ context.Context, _ map[string]string) (physical.Backend, error) {
	return New(), nil
}

// Backend is an in-memory implementation of physical.Backend.
// State survives only for the lifetime of the process.
type Backend struct {
	mu          sync.RWMutex
	initialized bool
	closed      bool
	owner       identity.Key
	records     map[identity.Key]*physical.Record
	order       []identity.Key
	updates     []*physical.UpdateEntry
	deletes     []*physical.DeleteEntry
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		records: make(map[identity.Key]*physical.Record),
	}
}

// Init persists the initial state.
func (b *Backend) Init(_ context.Context, st *physical.State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return physical.ErrClosed
	}
	if b.initialized {
		return errors.New("memory: already initialized")
	}

	b.owner = st.Owner
	for _, rec := range st.Records {
		cp := *rec
		b.records[rec.Sender] = &cp
		b.order = append(b.order, rec.Sender)
	}
	for _, e := range st.Updates {
		cp := *e
		b.updates = append(b.updates, &cp)
	}
	for _, e := range st.Deletes {
		cp := *e
		b.deletes = append(b.deletes, &cp)
	}
	b.initialized = true
	return nil
}

// Load returns a copy of the full persisted state.
func (b *Backend) Load(_ context.Context) (*physical.State, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, physical.ErrClosed
	}
	if !b.initialized {
		return nil, physical.ErrNotInitialized
	}

	st := &physical.State{Owner: b.owner}
	for _, sender := range b.order {
		cp := *b.records[sender]
		st.Records = append(st.Records, &cp)
	}
	for _, e := range b.updates {
		cp := *e
		st.Updates = append(st.Updates, &cp)
	}
	for _, e := range b.deletes {
		cp := *e
		st.Deletes = append(st.Deletes, &cp)
	}
	return st, nil
}

// CreateRecord persists a new record.
func (b *Backend) CreateRecord(_ context.Context, rec *physical.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return physical.ErrClosed
	}

	cp := *rec
	if _, exists := b.records[rec.Sender]; !exists {
		b.order = append(b.order, rec.Sender)
	}
	b.records[rec.Sender] = &cp
	return nil
}

// UpdateRecord overwrites a record and appends the update entry.
func (b *Backend) UpdateRecord(_ context.Context, rec *physical.Record, entry *physical.UpdateEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return physical.ErrClosed
	}
	if _, exists := b.records[rec.Sender]; !exists {
		return physical.ErrNotFound
	}

	recCp := *rec
	entryCp := *entry
	b.records[rec.Sender] = &recCp
	b.updates = append(b.updates, &entryCp)
	return nil
}

// DeleteRecord removes a record and appends the delete entry.
func (b *Backend) DeleteRecord(_ context.Context, sender identity.Key, entry *physical.DeleteEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return physical.ErrClosed
	}
	if _, exists := b.records[sender]; !exists {
		return physical.ErrNotFound
	}

	delete(b.records, sender)
	for i, k := range b.order {
		if identity.Equal(k, sender) {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	cp := *entry
	b.deletes = append(b.deletes, &cp)
	return nil
}

// Stats returns storage statistics.
func (b *Backend) Stats(_ context.Context) (*physical.Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, physical.ErrClosed
	}

	return &physical.Stats{
		Records:       int64(len(b.records)),
		UpdateEntries: int64(len(b.updates)),
		DeleteEntries: int64(len(b.deletes)),
		BackendType:   "memory",
	}, nil
}

// Close marks the backend closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
