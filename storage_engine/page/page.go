package page

import (
	"SlotDB/types"
	"sync"
	"sync/atomic"
)

const (
	PageSize           = types.PageSize
	PageChecksumOffset = 0 // first 8 bytes of every page = checksum
	PageTypeOffset     = 8
)

/*
Page is a buffer-pool frame: one PageSize byte region plus the bookkeeping the
buffer pool needs (pin count, dirty flag).

The byte format inside Data belongs to the access layer; for heap pages it is
described in storage_engine/access/heapfile_manager/heap_page_helpers.go.

generation is in-memory only. The access layer bumps it on every mutation so that
borrowed views into Data can detect that the bytes underneath them moved.
*/
type Page struct {
	ID       int64
	FileID   uint32
	Data     []byte
	IsDirty  bool
	PinCount int32
	PageType types.PageType

	generation atomic.Uint64
	mu         sync.RWMutex
}

func New(pageID int64, fileID uint32, pageType types.PageType) *Page {
	return &Page{
		ID:       pageID,
		FileID:   fileID,
		Data:     make([]byte, PageSize),
		PageType: pageType,
	}
}

// Generation returns the current mutation generation of the frame.
func (p *Page) Generation() uint64 {
	return p.generation.Load()
}

// Touch records a mutation of Data and marks the frame dirty.
func (p *Page) Touch() {
	p.generation.Add(1)
	p.IsDirty = true
}

func (p *Page) Lock() {
	p.mu.Lock()
}

func (p *Page) Unlock() {
	p.mu.Unlock()
}

func (p *Page) RLock() {
	p.mu.RLock()
}

func (p *Page) RUnlock() {
	p.mu.RUnlock()
}
