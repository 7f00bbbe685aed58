// Package physical provides the physical storage backend interface for
// contract state.
package physical

import (
	"context"
	"errors"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

var (
	// ErrNotFound indicates the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrNotInitialized indicates the backend holds no contract state yet.
	ErrNotInitialized = errors.New("contract state not initialized")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("backend closed")
)

// Record is the current message held by one sender. Position is the
// monotonically increasing insertion sequence that fixes roster order.
type Record struct {
	Sender    identity.Key `json:"sender"`
	Message   string       `json:"message"`
	Position  int64        `json:"position"`
	CreatedAt int64        `json:"created_at"`
	UpdatedAt int64        `json:"updated_at"`
}

// UpdateEntry is one immutable update-ledger entry.
type UpdateEntry struct {
	Sender     identity.Key `json:"sender"`
	OldMessage string       `json:"old_message"`
	NewMessage string       `json:"new_message"`
	Timestamp  int64        `json:"timestamp"`
}

// DeleteEntry is one immutable delete-ledger entry.
type DeleteEntry struct {
	Sender    identity.Key `json:"sender"`
	Message   string       `json:"message"`
	Timestamp int64        `json:"timestamp"`
}

// State is the full persisted contract state. Records are ordered by
// ascending Position; ledgers are in append order.
type State struct {
	Owner   identity.Key
	Records []*Record
	Updates []*UpdateEntry
	Deletes []*DeleteEntry
}

// Stats contains storage statistics.
type Stats struct {
	Records       int64
	UpdateEntries int64
	DeleteEntries int64
	BackendType   string
}

// Backend is the physical storage interface for contract state.
// All implementations must be thread-safe. Mutating calls that touch a
// record and a ledger together (UpdateRecord, DeleteRecord) must apply
// both writes atomically.
type Backend interface {
	// Init persists the initial state. Fails if state already exists.
	Init(ctx context.Context, st *State) error

	// Load returns the full persisted state, or ErrNotInitialized.
	Load(ctx context.Context) (*State, error)

	// CreateRecord persists a new record.
	CreateRecord(ctx context.Context, rec *Record) error

	// UpdateRecord overwrites an existing record and appends the
	// corresponding update-ledger entry in one atomic step.
	UpdateRecord(ctx context.Context, rec *Record, entry *UpdateEntry) error

	// DeleteRecord removes a record and appends the corresponding
	// delete-ledger entry in one atomic step.
	DeleteRecord(ctx context.Context, sender identity.Key, entry *DeleteEntry) error

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
