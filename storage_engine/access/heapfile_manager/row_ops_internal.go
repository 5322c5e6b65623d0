package heapfile

import (
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/types"

	"github.com/pkg/errors"
)

// this file contains internal functions, they do not take hf.mu.
// the external functions for each take it, so an operation built from several
// internal ones (e.g. compaction after a batch of deletes) does not deadlock.

// insertRecord walks the page chain from page 0 and stores data on the first
// page whose AvailableSpace admits it. When the tail is full a new page is
// appended and linked.
func (hf *HeapFile) insertRecord(data []byte) (types.RecordID, error) {
	if len(data) > MaxRecordSize {
		return types.RecordID{}, errors.Wrapf(ErrRecordTooLarge, "InsertRecord: %d bytes (max %d)", len(data), MaxRecordSize)
	}

	pid := types.PageID(0)
	for {
		var (
			rid      types.RecordID
			next     types.PageID
			inserted bool
		)
		err := hf.withPage(pid, true, func(hp *HeapPage) error {
			if hp.AvailableSpace() >= len(data) {
				var err error
				rid, err = hp.InsertRecord(data)
				inserted = err == nil
				return err
			}
			next = hp.GetNextPage()
			return nil
		})
		if err != nil {
			return types.RecordID{}, err
		}
		if inserted {
			hf.log.Debugf("INSERT page=%d slot=%d bytes=%d", rid.PageID, rid.SlotNo, len(data))
			return rid, nil
		}
		if !next.Valid() {
			return hf.appendPage(pid, data)
		}
		pid = next
	}
}

// appendPage allocates a page after tail, links it into the chain and
// inserts data into it.
func (hf *HeapFile) appendPage(tail types.PageID, data []byte) (types.RecordID, error) {
	pg, err := hf.bufferPool.NewPage(hf.fileID, types.PageTypeHeapData)
	if err != nil {
		return types.RecordID{}, errors.WithMessage(err, "allocate heap page")
	}

	newID := types.PageID(diskmanager.LocalPageNum(pg.ID))
	pg.Lock()
	hp := InitHeapPage(pg, newID)
	hp.SetPrevPage(tail)
	rid, err := hp.InsertRecord(data)
	pg.Unlock()
	if uerr := hf.bufferPool.UnpinPage(pg.ID, true); uerr != nil && err == nil {
		err = uerr
	}
	if err != nil {
		return types.RecordID{}, err
	}

	if err := hf.withPage(tail, true, func(hp *HeapPage) error {
		hp.SetNextPage(newID)
		return nil
	}); err != nil {
		return types.RecordID{}, errors.WithMessagef(err, "link page %d after %d", newID, tail)
	}

	hf.log.Debugf("NEW PAGE page=%d prev=%d", newID, tail)
	hf.log.Debugf("INSERT page=%d slot=%d bytes=%d", rid.PageID, rid.SlotNo, len(data))
	return rid, nil
}

func (hf *HeapFile) getRecord(rid types.RecordID) ([]byte, error) {
	var out []byte
	err := hf.withPage(rid.PageID, false, func(hp *HeapPage) error {
		var err error
		out, err = hp.GetRecord(rid)
		return err
	})
	return out, err
}

func (hf *HeapFile) deleteRecord(rid types.RecordID) error {
	err := hf.withPage(rid.PageID, true, func(hp *HeapPage) error {
		return hp.DeleteRecord(rid)
	})
	if err != nil {
		return err
	}
	hf.log.Debugf("DELETE page=%d slot=%d", rid.PageID, rid.SlotNo)
	return nil
}

func (hf *HeapFile) compactPages() (int, error) {
	removed := 0
	err := hf.walkPages(true, func(hp *HeapPage) error {
		n, err := hp.CompactSlotDir()
		removed += n
		return err
	})
	if err != nil {
		return removed, err
	}
	hf.log.Debugf("COMPACT removed %d slot directory holes", removed)
	return removed, nil
}

func (hf *HeapFile) stats() (HeapFileStats, error) {
	var st HeapFileStats
	err := hf.walkPages(false, func(hp *HeapPage) error {
		records := hp.GetNumOfRecords()
		st.Pages++
		st.Records += records
		st.Holes += hp.SlotCount() - records
		st.UsedBytes += PageDataSize - hp.FillOffset()
		st.FreeBytes += hp.FreeSpace()
		return nil
	})
	return st, err
}
