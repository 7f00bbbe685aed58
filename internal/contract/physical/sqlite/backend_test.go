package sqlite

import (
	"context"
	"errors"
	"path/filepath"
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
	b, err := NewFactory(context.Background(), map[string]string{
		KeyPath: filepath.Join(t.TempDir(), "state.db"),
	})
	if err != nil {
		t.Fatalf("create sqlite backend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
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

	st := &physical.State{
		Owner: owner,
		Records: []*physical.Record{
			{Sender: owner, Message: "the very first message", Position: 0, CreatedAt: 100, UpdatedAt: 100},
		},
	}
	if err := b.Init(ctx, st); err != nil {
		t.Fatalf("Init: %v", err)
	}

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !identity.Equal(got.Owner, owner) {
		t.Errorf("Owner = %s", got.Owner)
	}
	if len(got.Records) != 1 || got.Records[0].Message != "the very first message" {
		t.Errorf("Records = %+v", got.Records)
	}
	if got.Records[0].CreatedAt != 100 || got.Records[0].UpdatedAt != 100 {
		t.Errorf("timestamps = %d, %d", got.Records[0].CreatedAt, got.Records[0].UpdatedAt)
	}

	if err := b.Init(ctx, st); err == nil {
		t.Error("second Init succeeded")
	}
}

func TestMutations(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	owner := testKey(1)

	if err := b.Init(ctx, &physical.State{Owner: owner}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	sender := testKey(2)
	if err := b.CreateRecord(ctx, &physical.Record{Sender: sender, Message: "hello world", Position: 0, CreatedAt: 1, UpdatedAt: 1}); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	rec := &physical.Record{Sender: sender, Message: "hello other world", Position: 0, CreatedAt: 1, UpdatedAt: 2}
	entry := &physical.UpdateEntry{Sender: sender, OldMessage: "hello world", NewMessage: "hello other world", Timestamp: 2}
	if err := b.UpdateRecord(ctx, rec, entry); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}

	if err := b.DeleteRecord(ctx, sender, &physical.DeleteEntry{Sender: sender, Message: "hello other world", Timestamp: 3}); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}

	st, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Records) != 0 {
		t.Errorf("records after delete = %d", len(st.Records))
	}
	if len(st.Updates) != 1 || st.Updates[0].OldMessage != "hello world" {
		t.Errorf("Updates = %+v", st.Updates)
	}
	if len(st.Deletes) != 1 || st.Deletes[0].Message != "hello other world" {
		t.Errorf("Deletes = %+v", st.Deletes)
	}
}

func TestMutationsOnMissingRecord(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if err := b.Init(ctx, &physical.State{Owner: testKey(1)}); err != nil {
		t.Fatalf("Init: %v", err)
	}

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

func TestLoadOrdersByPosition(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if err := b.Init(ctx, &physical.State{Owner: testKey(1)}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Insert out of position order; Load must come back sorted.
	for _, p := range []struct {
		key byte
		pos int64
	}{{0xFF, 0}, {0x03, 2}, {0x02, 1}} {
		if err := b.CreateRecord(ctx, &physical.Record{Sender: testKey(p.key), Message: "position test msg", Position: p.pos}); err != nil {
			t.Fatalf("CreateRecord: %v", err)
		}
	}

	st, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []byte{0xFF, 0x02, 0x03}
	for i, k := range want {
		if !identity.Equal(st.Records[i].Sender, testKey(k)) {
			t.Errorf("record %d sender = %s, want key %#x", i, st.Records[i].Sender, k)
		}
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	owner := testKey(1)
	config := map[string]string{KeyPath: filepath.Join(dir, "state.db")}

	b1, err := NewFactory(ctx, config)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	st := &physical.State{
		Owner: owner,
		Records: []*physical.Record{
			{Sender: owner, Message: "surviving message", Position: 0, CreatedAt: 1, UpdatedAt: 1},
		},
		Updates: []*physical.UpdateEntry{
			{Sender: owner, OldMessage: "older message", NewMessage: "surviving message", Timestamp: 1},
		},
	}
	if err := b1.Init(ctx, st); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := b1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b2, err := NewFactory(ctx, config)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close()

	got, err := b2.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if !identity.Equal(got.Owner, owner) {
		t.Errorf("Owner = %s", got.Owner)
	}
	if len(got.Records) != 1 || got.Records[0].Message != "surviving message" {
		t.Errorf("Records = %+v", got.Records)
	}
	if len(got.Updates) != 1 {
		t.Errorf("Updates = %+v", got.Updates)
	}
}

func TestStats(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	owner := testKey(1)

	if err := b.Init(ctx, &physical.State{Owner: owner}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := b.CreateRecord(ctx, &physical.Record{Sender: owner, Message: "hello world"}); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	st, err := b.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Records != 1 || st.UpdateEntries != 0 || st.DeleteEntries != 0 {
		t.Errorf("Stats = %+v", st)
	}
	if st.BackendType != "sqlite" {
		t.Errorf("BackendType = %q", st.BackendType)
	}
}
