package heapfile

import (
	"SlotDB/types"

	"github.com/pkg/errors"
)

// HeapScan iterates the records of a heap file page by page, using the page's
// FirstRecord/NextRecord. Each step latches one page; records inserted or
// deleted between steps may or may not be seen. Do not compact while scanning.
type HeapScan struct {
	hf      *HeapFile
	pid     types.PageID
	cur     types.RecordID
	started bool // cur is valid on pid
}

// Next returns the next record and a copy of its bytes, or ErrNoMoreRecords.
func (s *HeapScan) Next() (types.RecordID, []byte, error) {
	s.hf.mu.RLock()
	defer s.hf.mu.RUnlock()

	for s.pid.Valid() {
		var (
			rid   types.RecordID
			data  []byte
			next  types.PageID
			found bool
		)
		err := s.hf.withPage(s.pid, false, func(hp *HeapPage) error {
			var err error
			if s.started {
				rid, err = hp.NextRecord(s.cur)
			} else {
				rid, err = hp.FirstRecord()
			}
			// cur past the directory end: its slot was trimmed by a delete.
			if errors.Is(err, ErrNoMoreRecords) || errors.Is(err, ErrInvalidSlot) {
				next = hp.GetNextPage()
				return nil
			}
			if err != nil {
				return err
			}
			data, err = hp.GetRecord(rid)
			found = err == nil
			return err
		})
		if err != nil {
			return types.RecordID{}, nil, err
		}
		if found {
			s.cur = rid
			s.started = true
			return rid, data, nil
		}
		s.pid = next
		s.started = false
	}
	return types.RecordID{}, nil, ErrNoMoreRecords
}

// ForEach calls fn for every remaining record until fn returns an error.
func (s *HeapScan) ForEach(fn func(rid types.RecordID, data []byte) error) error {
	for {
		rid, data, err := s.Next()
		if errors.Is(err, ErrNoMoreRecords) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rid, data); err != nil {
			return err
		}
	}
}
