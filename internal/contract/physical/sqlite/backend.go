// Package sqlite provides a SQLite-backed contract state backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/internal/storage"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

const (
	KeyPath        = "path"
	KeyJournalMode = "journal_mode"
	KeyBusyTimeout = "busy_timeout"
)

func init() {
	physical.Register("sqlite", NewFactory, Defaults)
}

// Defaults returns the default configuration for the SQLite backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:        "~/.ronin/state.db",
		KeyJournalMode: "wal",
		KeyBusyTimeout: "5000",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
    sender_hex  TEXT PRIMARY KEY,
    sender      BLOB NOT NULL,
    message     TEXT NOT NULL,
    position    INTEGER NOT NULL,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS update_history (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    sender      BLOB NOT NULL,
    old_message TEXT NOT NULL,
    new_message TEXT NOT NULL,
    timestamp   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS delete_history (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    sender      BLOB NOT NULL,
    message     TEXT NOT NULL,
    timestamp   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key         TEXT PRIMARY KEY,
    value       BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_position ON records(position);
`

// NewFactory creates a new SQLite backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("sqlite", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to create directory", err)
	}

	journalMode := storage.GetString(config, KeyJournalMode, "wal")
	busyTimeout := storage.GetString(config, KeyBusyTimeout, "5000")

	dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_busy_timeout=%s",
		path, journalMode, busyTimeout)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to initialize schema", err)
	}

	slog.Info("sqlite state backend initialized", "path", path, "journal_mode", journalMode)
	return &Backend{db: db}, nil
}

// Backend is a SQLite implementation of physical.Backend.
type Backend struct {
	db     *sql.DB
	closed atomic.Bool
}

// Init persists the initial state.
func (b *Backend) Init(ctx context.Context, st *physical.State) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite init: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM meta WHERE key = 'owner'`).Scan(&n); err != nil {
		return fmt.Errorf("sqlite init: %w", err)
	}
	if n > 0 {
		return errors.New("sqlite: already initialized")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('owner', ?)`, st.Owner[:]); err != nil {
		return fmt.Errorf("sqlite init: set owner: %w", err)
	}
	for _, rec := range st.Records {
		if err := upsertRecord(ctx, tx, rec); err != nil {
			return err
		}
	}
	for _, e := range st.Updates {
		if err := insertUpdate(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, e := range st.Deletes {
		if err := insertDelete(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load returns the full persisted state.
func (b *Backend) Load(ctx context.Context) (*physical.State, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	st := &physical.State{}

	var ownerBytes []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'owner'`).Scan(&ownerBytes)
	if err == sql.ErrNoRows {
		return nil, physical.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite load: owner: %w", err)
	}
	st.Owner, err = identity.FromBytes(ownerBytes)
	if err != nil {
		return nil, fmt.Errorf("sqlite load: owner: %w", err)
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT sender, message, position, created_at, updated_at FROM records ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite load: records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var senderBytes []byte
		rec := &physical.Record{}
		if err := rows.Scan(&senderBytes, &rec.Message, &rec.Position, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite load: scan record: %w", err)
		}
		if rec.Sender, err = identity.FromBytes(senderBytes); err != nil {
			return nil, fmt.Errorf("sqlite load: record sender: %w", err)
		}
		st.Records = append(st.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite load: records: %w", err)
	}

	uRows, err := b.db.QueryContext(ctx,
		`SELECT sender, old_message, new_message, timestamp FROM update_history ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite load: updates: %w", err)
	}
	defer uRows.Close()
	for uRows.Next() {
		var senderBytes []byte
		e := &physical.UpdateEntry{}
		if err := uRows.Scan(&senderBytes, &e.OldMessage, &e.NewMessage, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite load: scan update: %w", err)
		}
		if e.Sender, err = identity.FromBytes(senderBytes); err != nil {
			return nil, fmt.Errorf("sqlite load: update sender: %w", err)
		}
		st.Updates = append(st.Updates, e)
	}
	if err := uRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite load: updates: %w", err)
	}

	dRows, err := b.db.QueryContext(ctx,
		`SELECT sender, message, timestamp FROM delete_history ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite load: deletes: %w", err)
	}
	defer dRows.Close()
	for dRows.Next() {
		var senderBytes []byte
		e := &physical.DeleteEntry{}
		if err := dRows.Scan(&senderBytes, &e.Message, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite load: scan delete: %w", err)
		}
		if e.Sender, err = identity.FromBytes(senderBytes); err != nil {
			return nil, fmt.Errorf("sqlite load: delete sender: %w", err)
		}
		st.Deletes = append(st.Deletes, e)
	}
	if err := dRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite load: deletes: %w", err)
	}

	return st, nil
}

func upsertRecord(ctx context.Context, tx *sql.Tx, rec *physical.Record) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (sender_hex, sender, message, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		identity.Hex(rec.Sender), rec.Sender[:], rec.Message, rec.Position, rec.CreatedAt, rec.UpdatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: insert record: %w", err)
	}
	return nil
}

func insertUpdate(ctx context.Context, tx *sql.Tx, e *physical.UpdateEntry) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO update_history (sender, old_message, new_message, timestamp) VALUES (?, ?, ?, ?)`,
		e.Sender[:], e.OldMessage, e.NewMessage, e.Timestamp,
	); err != nil {
		return fmt.Errorf("sqlite: insert update entry: %w", err)
	}
	return nil
}

func insertDelete(ctx context.Context, tx *sql.Tx, e *physical.DeleteEntry) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO delete_history (sender, message, timestamp) VALUES (?, ?, ?)`,
		e.Sender[:], e.Message, e.Timestamp,
	); err != nil {
		return fmt.Errorf("sqlite: insert delete entry: %w", err)
	}
	return nil
}

// CreateRecord persists a new record.
func (b *Backend) CreateRecord(ctx context.Context, rec *physical.Record) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite create: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertRecord(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateRecord overwrites a record and appends the update entry in one
// transaction.
func (b *Backend) UpdateRecord(ctx context.Context, rec *physical.Record, entry *physical.UpdateEntry) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite update: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE records SET message = ?, updated_at = ? WHERE sender_hex = ?`,
		rec.Message, rec.UpdatedAt, identity.Hex(rec.Sender))
	if err != nil {
		return fmt.Errorf("sqlite update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite update: rows affected: %w", err)
	}
	if n == 0 {
		return physical.ErrNotFound
	}

	if err := insertUpdate(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteRecord removes a record and appends the delete entry in one
// transaction.
func (b *Backend) DeleteRecord(ctx context.Context, sender identity.Key, entry *physical.DeleteEntry) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite delete: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE sender_hex = ?`, identity.Hex(sender))
	if err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite delete: rows affected: %w", err)
	}
	if n == 0 {
		return physical.ErrNotFound
	}

	if err := insertDelete(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// Stats returns storage statistics.
func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	st := &physical.Stats{BackendType: "sqlite"}
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&st.Records); err != nil {
		return nil, fmt.Errorf("sqlite stats: %w", err)
	}
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM update_history`).Scan(&st.UpdateEntries); err != nil {
		return nil, fmt.Errorf("sqlite stats: %w", err)
	}
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM delete_history`).Scan(&st.DeleteEntries); err != nil {
		return nil, fmt.Errorf("sqlite stats: %w", err)
	}
	return st, nil
}

// Close closes the SQLite database.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
