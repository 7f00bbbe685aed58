package memory

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

func TestLoadBeforeInit(t *testing.T) {
	b := New()
	defer b.Close()

	_, err := b.Load(context.Background())
	if !errors.Is(err, physical.ErrNotInitialized) {
		t.Errorf("Load = %v, want ErrNotInitialized", err)
	}
}

func TestInitAndLoad(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	owner := testKey(1)
	st := &physical.State{
		Owner: owner,
		Records: []*physical.Record{
			{Sender: owner, Message: "seed message here", Position: 0, CreatedAt: 100, UpdatedAt: 100},
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
	if len(got.Records) != 1 || got.Records[0].Message != "seed message here" {
		t.Errorf("Records = %+v", got.Records)
	}

	if err := b.Init(ctx, st); err == nil {
		t.Error("second Init succeeded")
	}
}

func TestMutations(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	owner := testKey(1)
	if err := b.Init(ctx, &physical.State{Owner: owner}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	sender := testKey(2)
	rec := &physical.Record{Sender: sender, Message: "hello world", Position: 0, CreatedAt: 1, UpdatedAt: 1}
	if err := b.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	updated := *rec
	updated.Message = "hello other world"
	updated.UpdatedAt = 2
	entry := &physical.UpdateEntry{Sender: sender, OldMessage: rec.Message, NewMessage: updated.Message, Timestamp: 2}
	if err := b.UpdateRecord(ctx, &updated, entry); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}

	if err := b.DeleteRecord(ctx, sender, &physical.DeleteEntry{Sender: sender, Message: updated.Message, Timestamp: 3}); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}

	st, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Records) != 0 {
		t.Errorf("Records after delete = %d", len(st.Records))
	}
	if len(st.Updates) != 1 || st.Updates[0].NewMessage != "hello other world" {
		t.Errorf("Updates = %+v", st.Updates)
	}
	if len(st.Deletes) != 1 || st.Deletes[0].Message != "hello other world" {
		t.Errorf("Deletes = %+v", st.Deletes)
	}
}

func TestMutationsOnMissingRecord(t *testing.T) {
	b := New()
	defer b.Close()
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

func TestClosed(t *testing.T) {
	b := New()
	b.Close()

	if _, err := b.Load(context.Background()); !errors.Is(err, physical.ErrClosed) {
		t.Errorf("Load after close = %v, want ErrClosed", err)
	}
	if err := b.CreateRecord(context.Background(), &physical.Record{}); !errors.Is(err, physical.ErrClosed) {
		t.Errorf("CreateRecord after close = %v, want ErrClosed", err)
	}
}

func TestRegistered(t *testing.T) {
	b, err := physical.New(context.Background(), "memory", nil)
	if err != nil {
		t.Fatalf("physical.New: %v", err)
	}
	b.Close()
}
