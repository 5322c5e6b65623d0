package types

import "fmt"

// RecordID points to a record on a heap page.
// It stays valid until the slot is deleted or the page's slot directory is compacted.
type RecordID struct {
	PageID PageID `json:"page_id"`
	SlotNo int    `json:"slot_no"` // Index in the slot directory
}

func (r RecordID) String() string {
	return fmt.Sprintf("(%d,%d)", r.PageID, r.SlotNo)
}
