package contract

import (
	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

// recordSet is an insertion-ordered keyed container of records: keyed
// lookup and ordered iteration over one structure, so membership and
// enumeration can never disagree. Ordering follows Record.Position,
// assigned once at first insertion and never reused.
type recordSet struct {
	index   map[identity.Key]*physical.Record
	order   []*physical.Record
	nextPos int64
}

func newRecordSet() *recordSet {
	return &recordSet{index: make(map[identity.Key]*physical.Record)}
}

// load rebuilds the set from persisted records, which arrive in
// ascending position order.
func (s *recordSet) load(records []*physical.Record) {
	for _, rec := range records {
		cp := *rec
		s.index[rec.Sender] = &cp
		s.order = append(s.order, &cp)
		if cp.Position >= s.nextPos {
			s.nextPos = cp.Position + 1
		}
	}
}

func (s *recordSet) contains(sender identity.Key) bool {
	_, ok := s.index[sender]
	return ok
}

func (s *recordSet) get(sender identity.Key) (*physical.Record, bool) {
	rec, ok := s.index[sender]
	return rec, ok
}

// insert adds a new record at the end of the enumeration and assigns
// its position. The sender must not already be present.
func (s *recordSet) insert(rec *physical.Record) {
	rec.Position = s.nextPos
	s.nextPos++
	s.index[rec.Sender] = rec
	s.order = append(s.order, rec)
}

// remove drops the sender's record. No-op if absent.
func (s *recordSet) remove(sender identity.Key) {
	if _, ok := s.index[sender]; !ok {
		return
	}
	delete(s.index, sender)
	for i, rec := range s.order {
		if identity.Equal(rec.Sender, sender) {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ordered returns the records in insertion order. The slice is shared;
// callers must not mutate it.
func (s *recordSet) ordered() []*physical.Record {
	return s.order
}

func (s *recordSet) len() int {
	return len(s.index)
}
