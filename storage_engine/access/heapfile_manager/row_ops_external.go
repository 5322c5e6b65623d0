package heapfile

import (
	"SlotDB/types"
)

/* this file contains external functions for record operations on the heapfile,
they take the heap file lock before calling their internal function.
the internal functions must not take it, otherwise an operation composed of
several of them would deadlock
*/

// InsertRecord stores data on the first page with room for it and returns its RecordID.
func (hf *HeapFile) InsertRecord(data []byte) (types.RecordID, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.insertRecord(data)
}

// GetRecord returns a copy of the record at rid.
func (hf *HeapFile) GetRecord(rid types.RecordID) ([]byte, error) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return hf.getRecord(rid)
}

// DeleteRecord removes the record at rid. Other RecordIDs stay valid.
func (hf *HeapFile) DeleteRecord(rid types.RecordID) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.deleteRecord(rid)
}

// CompactPages removes the slot directory holes of every page and returns how
// many were removed. All RecordIDs previously handed out for this file must be
// treated as stale afterwards.
func (hf *HeapFile) CompactPages() (int, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.compactPages()
}

// Stats walks the page chain and summarises space usage.
func (hf *HeapFile) Stats() (HeapFileStats, error) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return hf.stats()
}

// Scan returns an iterator over every record in page-chain, then slot, order.
func (hf *HeapFile) Scan() *HeapScan {
	return &HeapScan{hf: hf, pid: 0}
}
