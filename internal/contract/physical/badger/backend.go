// Package badger provides a BadgerDB-backed contract state backend.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/internal/storage"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

const (
	prefixRecord = "record/"
	prefixUpdate = "update/"
	prefixDelete = "delete/"
	keyOwner     = "meta/owner"
)

const (
	KeyPath       = "path"
	KeySyncWrites = "sync_writes"
	KeyInMemory   = "in_memory"
)

func init() {
	physical.Register("badger", NewFactory, Defaults)
}

// Defaults returns the default configuration for the BadgerDB backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:       "~/.ronin/state",
		KeySyncWrites: "true",
		KeyInMemory:   "false",
	}
}

// NewFactory creates a new BadgerDB backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	inMemory, err := storage.GetBool(config, KeyInMemory, false)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeyInMemory, config[KeyInMemory], err.Error())
	}

	if inMemory {
		return newInMemory()
	}

	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("badger", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to create directory", err)
	}

	syncWrites, err := storage.GetBool(config, KeySyncWrites, true)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeySyncWrites, config[KeySyncWrites], err.Error())
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = syncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to open database", err)
	}

	slog.Info("badger state backend initialized", "path", path, "sync_writes", syncWrites)
	return newWithDB(db)
}

func newInMemory() (*Backend, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyInMemory, "failed to open in-memory database", err)
	}

	slog.Info("badger state backend initialized (in-memory)")
	return newWithDB(db)
}

// Backend is a BadgerDB implementation of physical.Backend.
type Backend struct {
	db        *badger.DB
	closed    atomic.Bool
	updateSeq atomic.Int64
	deleteSeq atomic.Int64
}

func newWithDB(db *badger.DB) (*Backend, error) {
	b := &Backend{db: db}
	if err := b.loadSeqs(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// loadSeqs positions the ledger sequence counters after the last stored entry.
func (b *Backend) loadSeqs() error {
	return b.db.View(func(txn *badger.Txn) error {
		b.updateSeq.Store(lastSeq(txn, prefixUpdate))
		b.deleteSeq.Store(lastSeq(txn, prefixDelete))
		return nil
	})
}

func lastSeq(txn *badger.Txn, prefix string) int64 {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	// Seek past the last key in the prefix range.
	seek := append([]byte(prefix), 0xFF)
	it.Seek(seek)
	if !it.ValidForPrefix([]byte(prefix)) {
		return 0
	}
	key := it.Item().Key()
	if len(key) != len(prefix)+8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(key[len(prefix):]))
}

func seqKey(prefix string, seq int64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(seq))
	return key
}

func recordKey(sender identity.Key) []byte {
	return []byte(prefixRecord + identity.Hex(sender))
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("badger: marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// Init persists the initial state.
func (b *Backend) Init(_ context.Context, st *physical.State) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(keyOwner)); err == nil {
			return errors.New("badger: already initialized")
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("badger init: %w", err)
		}

		if err := txn.Set([]byte(keyOwner), st.Owner[:]); err != nil {
			return fmt.Errorf("badger init: set owner: %w", err)
		}
		for _, rec := range st.Records {
			if err := setJSON(txn, recordKey(rec.Sender), rec); err != nil {
				return err
			}
		}
		for _, e := range st.Updates {
			if err := setJSON(txn, seqKey(prefixUpdate, b.updateSeq.Add(1)), e); err != nil {
				return err
			}
		}
		for _, e := range st.Deletes {
			if err := setJSON(txn, seqKey(prefixDelete, b.deleteSeq.Add(1)), e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns the full persisted state.
func (b *Backend) Load(_ context.Context) (*physical.State, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	st := &physical.State{}
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyOwner))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return physical.ErrNotInitialized
		}
		if err != nil {
			return fmt.Errorf("badger load: owner: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			owner, err := identity.FromBytes(val)
			if err != nil {
				return err
			}
			st.Owner = owner
			return nil
		}); err != nil {
			return fmt.Errorf("badger load: owner: %w", err)
		}

		if err := scanJSON(txn, prefixRecord, func(rec *physical.Record) {
			st.Records = append(st.Records, rec)
		}); err != nil {
			return err
		}
		if err := scanJSON(txn, prefixUpdate, func(e *physical.UpdateEntry) {
			st.Updates = append(st.Updates, e)
		}); err != nil {
			return err
		}
		return scanJSON(txn, prefixDelete, func(e *physical.DeleteEntry) {
			st.Deletes = append(st.Deletes, e)
		})
	})
	if err != nil {
		return nil, err
	}

	// Record keys are hex-ordered; roster order comes from Position.
	sort.Slice(st.Records, func(i, j int) bool {
		return st.Records[i].Position < st.Records[j].Position
	})
	return st, nil
}

func scanJSON[T any](txn *badger.Txn, prefix string, add func(*T)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return fmt.Errorf("badger scan %s: %w", prefix, err)
		}
		add(&v)
	}
	return nil
}

// CreateRecord persists a new record.
func (b *Backend) CreateRecord(_ context.Context, rec *physical.Record) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, recordKey(rec.Sender), rec)
	})
}

// UpdateRecord overwrites a record and appends the update entry atomically.
func (b *Backend) UpdateRecord(_ context.Context, rec *physical.Record, entry *physical.UpdateEntry) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recordKey(rec.Sender)); errors.Is(err, badger.ErrKeyNotFound) {
			return physical.ErrNotFound
		} else if err != nil {
			return fmt.Errorf("badger update: %w", err)
		}
		if err := setJSON(txn, recordKey(rec.Sender), rec); err != nil {
			return err
		}
		return setJSON(txn, seqKey(prefixUpdate, b.updateSeq.Add(1)), entry)
	})
}

// DeleteRecord removes a record and appends the delete entry atomically.
func (b *Backend) DeleteRecord(_ context.Context, sender identity.Key, entry *physical.DeleteEntry) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recordKey(sender)); errors.Is(err, badger.ErrKeyNotFound) {
			return physical.ErrNotFound
		} else if err != nil {
			return fmt.Errorf("badger delete: %w", err)
		}
		if err := txn.Delete(recordKey(sender)); err != nil {
			return fmt.Errorf("badger delete: %w", err)
		}
		return setJSON(txn, seqKey(prefixDelete, b.deleteSeq.Add(1)), entry)
	})
}

// Stats returns storage statistics.
func (b *Backend) Stats(_ context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	st := &physical.Stats{BackendType: "badger"}
	err := b.db.View(func(txn *badger.Txn) error {
		st.Records = countPrefix(txn, prefixRecord)
		st.UpdateEntries = countPrefix(txn, prefixUpdate)
		st.DeleteEntries = countPrefix(txn, prefixDelete)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger stats: %w", err)
	}
	return st, nil
}

func countPrefix(txn *badger.Txn, prefix string) int64 {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var n int64
	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		n++
	}
	return n
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
