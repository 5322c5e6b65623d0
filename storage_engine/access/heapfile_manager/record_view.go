package heapfile

import (
	page "SlotDB/storage_engine/page"

	"github.com/pkg/errors"
)

// RecordView borrows a record's bytes straight out of a buffer-pool frame.
//
// It captures the frame generation at creation. Insert, delete, compaction and
// Init all bump the generation, after which Bytes refuses to resolve: the
// bytes may have been moved or overwritten. Nothing stops a caller from keeping
// the slice Bytes already returned, so use it before the next mutating call.
type RecordView struct {
	pg     *page.Page
	gen    uint64
	offset int // absolute offset in pg.Data
	length int
}

// Bytes returns the record bytes, or ErrStaleView once the page changed.
// The slice aliases the page; do not modify it.
func (v RecordView) Bytes() ([]byte, error) {
	if v.pg == nil {
		return nil, errors.Wrap(ErrStaleView, "zero RecordView")
	}
	if cur := v.pg.Generation(); cur != v.gen {
		return nil, errors.Wrapf(ErrStaleView, "captured generation %d, page at %d", v.gen, cur)
	}
	end := v.offset + v.length
	return v.pg.Data[v.offset:end:end], nil
}

// Valid reports whether Bytes would still resolve.
func (v RecordView) Valid() bool {
	return v.pg != nil && v.pg.Generation() == v.gen
}

func (v RecordView) Len() int {
	return v.length
}
