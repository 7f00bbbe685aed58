package contract

import (
	"testing"

	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
)

func TestRecordSetInsertAssignsPositions(t *testing.T) {
	rs := newRecordSet()

	for i := byte(0); i < 3; i++ {
		rs.insert(&physical.Record{Sender: testKey(i)})
	}

	for i, rec := range rs.ordered() {
		if rec.Position != int64(i) {
			t.Errorf("record %d position = %d", i, rec.Position)
		}
	}
}

func TestRecordSetRemoveKeepsOrder(t *testing.T) {
	rs := newRecordSet()
	for i := byte(0); i < 4; i++ {
		rs.insert(&physical.Record{Sender: testKey(i)})
	}

	rs.remove(testKey(1))

	if rs.contains(testKey(1)) {
		t.Error("removed key still present")
	}
	ordered := rs.ordered()
	if len(ordered) != 3 {
		t.Fatalf("len = %d, want 3", len(ordered))
	}
	want := []byte{0, 2, 3}
	for i, rec := range ordered {
		if rec.Sender != testKey(want[i]) {
			t.Errorf("position %d holds %s, want key %#x", i, rec.Sender, want[i])
		}
	}
}

func TestRecordSetPositionsNeverReused(t *testing.T) {
	rs := newRecordSet()
	rs.insert(&physical.Record{Sender: testKey(0)})
	rs.insert(&physical.Record{Sender: testKey(1)})
	rs.remove(testKey(1))

	rec := &physical.Record{Sender: testKey(2)}
	rs.insert(rec)
	if rec.Position != 2 {
		t.Errorf("position after remove = %d, want 2", rec.Position)
	}
}

func TestRecordSetLoadResumesPositions(t *testing.T) {
	rs := newRecordSet()
	rs.load([]*physical.Record{
		{Sender: testKey(0), Position: 3},
		{Sender: testKey(1), Position: 7},
	})

	if rs.len() != 2 {
		t.Fatalf("len = %d, want 2", rs.len())
	}

	rec := &physical.Record{Sender: testKey(2)}
	rs.insert(rec)
	if rec.Position != 8 {
		t.Errorf("position after load = %d, want 8", rec.Position)
	}
}

func TestRecordSetGet(t *testing.T) {
	rs := newRecordSet()
	rs.insert(&physical.Record{Sender: testKey(5), Message: "hello"})

	rec, ok := rs.get(testKey(5))
	if !ok || rec.Message != "hello" {
		t.Errorf("get = %v, %v", rec, ok)
	}
	if _, ok := rs.get(testKey(6)); ok {
		t.Error("get returned a record for an absent key")
	}
}
