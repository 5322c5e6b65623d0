package types

const (
	PageSize = 4096 // 4KB page
)

type PageType uint8

const (
	PageTypeUnknown PageType = iota
	PageTypeHeapData
)

func (t PageType) String() string {
	switch t {
	case PageTypeHeapData:
		return "heap"
	default:
		return "unknown"
	}
}

// PageID is the page number a heap page stores in its own header.
// Sibling links in the heap-file chain use the same numbering.
type PageID int32

// InvalidPageID marks an absent sibling link.
const InvalidPageID PageID = -1

func (id PageID) Valid() bool {
	return id >= 0
}
