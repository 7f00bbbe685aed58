package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

func testKey(b byte) identity.Key {
	var k identity.Key
	k[0] = b
	return k
}

func newTestBackend(t *testing.T) physical.Backend {
	t.Helper()
	b, err := NewFactory(context.Background(), map[string]string{KeyInMemory: "true"})
	if err != nil {
		t.Fatalf("create badger backend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func seedState(t *testing.T, b physical.Backend, owner identity.Key) {
	t.Helper()
	st := &physical.State{
		Owner: owner,
		Records: []*physical.Record{
			{Sender: owner, Message: "the very first message", Position: 0, CreatedAt: 100, UpdatedAt: 100},
		},
	}
	if err := b.Init(context.Background(), st); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestLoadBeforeInit(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Load(context.Background())
	if !errors.Is(err, physical.ErrNotInitialized) {
		t.Errorf("Load = %v, want ErrNotInitialized", err)
	}
}

func TestInitLoadRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	owner := testKey(1)

	seedState(t, b, owner)

	st, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !identity.Equal(st.Owner, owner) {
		t.Errorf("Owner = %s", st.Owner)
	}
	if len(st.Records) != 1 || st.Records[0].Message != "the very first message" {
		t.Errorf("Records = %+v", st.Records)
	}

	if err := b.Init(ctx, st); err == nil {
		t.Error("second Init succeeded")
	}
}

func TestLoadSortsByPosition(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	seedState(t, b, testKey(1))

	// Hex key order and position order disagree on purpose: 0xFF sorts
	// last lexicographically but was inserted first.
	if err := b.CreateRecord(ctx, &physical.Record{Sender: testKey(0xFF), Message: "first insert", Position: 1}); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if err := b.CreateRecord(ctx, &physical.Record{Sender: testKey(0x02), Message: "second insert", Position: 2}); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	st, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []identity.Key{testKey(1), testKey(0xFF), testKey(0x02)}
	for i, k := range want {
		if !identity.Equal(st.Records[i].Sender, k) {
			t.Errorf("record %d sender = %s, want %s", i, st.Records[i].Sender, k)
		}
	}
}

func TestLedgerOrder(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	owner := testKey(1)

	seedState(t, b, owner)

	for i, text := range []string{"second version ok", "third version ok", "fourth version ok"} {
		rec := &physical.Record{Sender: owner, Message: text, Position: 0, UpdatedAt: int64(i)}
		entry := &physical.UpdateEntry{Sender: owner, NewMessage: text, Timestamp: int64(i)}
		if err := b.UpdateRecord(ctx, rec, entry); err != nil {
			t.Fatalf("UpdateRecord %d: %v", i, err)
		}
	}

	st, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Updates) != 3 {
		t.Fatalf("update entries = %d, want 3", len(st.Updates))
	}
	for i, want := range []string{"second version ok", "third version ok", "fourth version ok"} {
		if st.Updates[i].NewMessage != want {
			t.Errorf("entry %d = %q, want %q", i, st.Updates[i].NewMessage, want)
		}
	}
}

func TestMutationsOnMissingRecord(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	seedState(t, b, testKey(1))

	ghost := testKey(9)
	err := b.UpdateRecord(ctx, &physical.Record{Sender: ghost}, &physical.UpdateEntry{Sender: ghost})
	if !errors.Is(err, physical.ErrNotFound) {
		t.Errorf("UpdateRecord = %v, want ErrNotFound", err)
	}
	err = b.DeleteRecord(ctx, ghost, &physical.DeleteEntry{Sender: ghost})
	if !errors.Is(err, physical.ErrNotFound) {
		t.Errorf("DeleteRecord = %v, want ErrNotFound", err)
	}
}

func TestReopenResumesSequences(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	owner := testKey(1)
	config := map[string]string{KeyPath: dir, KeySyncWrites: "false"}

	b1, err := NewFactory(ctx, config)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedState(t, b1, owner)
	entry := &physical.UpdateEntry{Sender: owner, OldMessage: "a", NewMessage: "first update text", Timestamp: 1}
	if err := b1.UpdateRecord(ctx, &physical.Record{Sender: owner, Message: "first update text"}, entry); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if err := b1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b2, err := NewFactory(ctx, config)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close()

	entry2 := &physical.UpdateEntry{Sender: owner, NewMessage: "second update text", Timestamp: 2}
	if err := b2.UpdateRecord(ctx, &physical.Record{Sender: owner, Message: "second update text"}, entry2); err != nil {
		t.Fatalf("UpdateRecord after reopen: %v", err)
	}

	st, err := b2.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if len(st.Updates) != 2 {
		t.Fatalf("update entries after reopen = %d, want 2", len(st.Updates))
	}
	if st.Updates[1].NewMessage != "second update text" {
		t.Errorf("last entry = %q", st.Updates[1].NewMessage)
	}
}

func TestStats(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	owner := testKey(1)

	seedState(t, b, owner)
	if err := b.DeleteRecord(ctx, owner, &physical.DeleteEntry{Sender: owner, Message: "gone", Timestamp: 1}); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}

	st, err := b.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Records != 0 || st.DeleteEntries != 1 {
		t.Errorf("Stats = %+v", st)
	}
	if st.BackendType != "badger" {
		t.Errorf("BackendType = %q", st.BackendType)
	}
}

func TestClosed(t *testing.T) {
	b, err := NewFactory(context.Background(), map[string]string{KeyInMemory: "true"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b.Close()

	if _, err := b.Load(context.Background()); !errors.Is(err, physical.ErrClosed) {
		t.Errorf("Load after close = %v, want ErrClosed", err)
	}
}
