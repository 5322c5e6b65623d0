package bufferpool

import (
	"SlotDB/logger"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
)

/*
This file is the main file of the bufferpool
Resident frames are evicted in LRU order among unpinned frames; dirty frames are
written through the disk manager before they leave.
A copy of every evicted frame goes into the image cache (ristretto, cost = page size),
so a page that is fetched again shortly after eviction is rebuilt from memory.
The image cache only ever holds clean bytes: an image is replaced on each eviction
and deleted when its page is reallocated or its file is dropped.

Pages are identified by globalPageID (see disk manager)
*/

// NewBufferPool creates a new buffer pool with room for capacity resident
// frames. imageCacheBytes <= 0 disables the image cache.
func NewBufferPool(capacity int, imageCacheBytes int64, diskManager *diskmanager.DiskManager) (*BufferPool, error) {
	if capacity < 1 {
		return nil, errors.Errorf("buffer pool capacity must be positive, got %d", capacity)
	}

	bp := &BufferPool{
		frames:      make(map[int64]*page.Page, capacity),
		capacity:    capacity,
		diskManager: diskManager,
		accessOrder: make([]int64, 0, capacity),
		log:         logger.For("BufferPool"),
	}

	if imageCacheBytes > 0 {
		images, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
			NumCounters: 10 * (imageCacheBytes/page.PageSize + 1),
			MaxCost:     imageCacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create page image cache")
		}
		bp.images = images
	}

	return bp, nil
}

// FetchPage retrieves a page from the buffer pool, loading it if necessary.
// Returns the page with pin count incremented.
func (bp *BufferPool) FetchPage(pageID int64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if pg, exists := bp.frames[pageID]; exists {
		bp.stats.hits++
		bp.log.Debugf("HIT  pageID=%d pinCount=%d", pageID, pg.PinCount)
		bp.updateAccessOrder(pageID)
		pg.PinCount++
		return pg, nil
	}

	pg, err := bp.load(pageID)
	if err != nil {
		return nil, err
	}

	if err := bp.addPage(pg); err != nil {
		return nil, errors.WithMessage(err, "add page to buffer pool")
	}
	pg.PinCount++
	return pg, nil
}

// load builds a frame for a non-resident page from the image cache or disk.
// Assumes lock is already held
func (bp *BufferPool) load(pageID int64) (*page.Page, error) {
	if bp.images != nil {
		if img, ok := bp.images.Get(pageID); ok {
			bp.stats.cacheHits++
			bp.log.Debugf("CACHE pageID=%d", pageID)
			pg := page.New(pageID, diskmanager.FileIDOf(pageID), types.PageType(img[page.PageTypeOffset]))
			copy(pg.Data, img)
			return pg, nil
		}
	}

	bp.stats.misses++
	bp.log.Debugf("MISS pageID=%d, loading from disk", pageID)
	if bp.diskManager == nil {
		return nil, errors.New("disk manager not set")
	}
	pg, err := bp.diskManager.ReadPage(pageID)
	if err != nil {
		return nil, errors.WithMessagef(err, "read page %d from disk", pageID)
	}
	return pg, nil
}

// NewPage asks the DiskManager for the next page id of fileID, builds a blank
// dirty frame for it entirely in RAM and pins it for the caller.
func (bp *BufferPool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return nil, errors.New("disk manager not set")
	}

	// Make room first so a full pool does not leak an allocated page number.
	if len(bp.frames) >= bp.capacity {
		if err := bp.evictLRU(); err != nil {
			return nil, errors.WithMessage(err, "evict page")
		}
	}

	pageID, err := bp.diskManager.AllocatePage(fileID)
	if err != nil {
		return nil, errors.WithMessage(err, "allocate page")
	}
	if bp.images != nil {
		bp.images.Del(pageID)
	}

	pg := page.New(pageID, fileID, pageType)
	pg.IsDirty = true // New pages are dirty by default

	if err := bp.addPage(pg); err != nil {
		return nil, errors.WithMessage(err, "add new page to buffer pool")
	}
	pg.PinCount++

	return pg, nil
}

// UnpinPage decrements the pin count for a page
func (bp *BufferPool) UnpinPage(pageID int64, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.frames[pageID]
	if !exists {
		return errors.Wrapf(ErrNotResident, "unpin page %d", pageID)
	}

	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if isDirty {
		pg.IsDirty = true
	}

	return nil
}

// FlushPage writes a specific page to disk if dirty
func (bp *BufferPool) FlushPage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.frames[pageID]
	if !exists {
		return errors.Wrapf(ErrNotResident, "flush page %d", pageID)
	}
	return bp.writeBack(pg)
}

// FlushAllPages writes all dirty pages to disk
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.log.Debugf("FlushAllPages pool size=%d", len(bp.frames))
	for _, pg := range bp.frames {
		if err := bp.writeBack(pg); err != nil {
			return err
		}
	}
	return nil
}

// writeBack flushes a dirty frame under its latch.
// Assumes lock is already held
func (bp *BufferPool) writeBack(pg *page.Page) error {
	pg.Lock()
	defer pg.Unlock()

	if !pg.IsDirty {
		return nil
	}
	if err := bp.diskManager.WritePage(pg); err != nil {
		return errors.WithMessagef(err, "flush page %d", pg.ID)
	}
	bp.stats.writebacks++
	bp.log.Debugf("FLUSH pageID=%d", pg.ID)
	return nil
}

// DropFile flushes and forgets every resident frame of a file.
// Fails with ErrPagePinned if one of them is still in use.
func (bp *BufferPool) DropFile(fileID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageID, pg := range bp.frames {
		if pg.FileID != fileID {
			continue
		}
		if pg.PinCount > 0 {
			return errors.Wrapf(ErrPagePinned, "drop file %d: page %d", fileID, pageID)
		}
		if err := bp.writeBack(pg); err != nil {
			return err
		}
		bp.removeFrame(pageID)
		if bp.images != nil {
			bp.images.Del(pageID)
		}
	}
	return nil
}

// Close flushes every dirty frame and releases the image cache.
func (bp *BufferPool) Close() error {
	err := bp.FlushAllPages()

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.images != nil {
		bp.images.Close()
		bp.images = nil
	}
	return err
}

// addPage adds a page to the buffer pool, evicting if necessary
// Assumes lock is already held
func (bp *BufferPool) addPage(pg *page.Page) error {
	if _, exists := bp.frames[pg.ID]; exists {
		bp.updateAccessOrder(pg.ID)
		return nil
	}

	if len(bp.frames) >= bp.capacity {
		if err := bp.evictLRU(); err != nil {
			return errors.WithMessage(err, "evict page")
		}
	}

	bp.frames[pg.ID] = pg
	bp.updateAccessOrder(pg.ID)
	return nil
}

// evictLRU evicts the least recently used unpinned page
// Assumes lock is already held
func (bp *BufferPool) evictLRU() error {
	for _, pageID := range bp.accessOrder {
		pg := bp.frames[pageID]
		if pg == nil || pg.PinCount > 0 {
			continue
		}

		bp.log.Debugf("EVICT pageID=%d dirty=%v", pageID, pg.IsDirty)
		if err := bp.writeBack(pg); err != nil {
			return errors.WithMessagef(err, "write page %d during eviction", pageID)
		}
		bp.remember(pg)
		bp.removeFrame(pageID)
		bp.stats.evictions++
		return nil
	}

	return ErrAllPinned
}

// remember stores a clean copy of pg in the image cache.
// Assumes lock is already held
func (bp *BufferPool) remember(pg *page.Page) {
	if bp.images == nil {
		return
	}
	// Drop the old image first so a rejected Set can never leave it behind.
	bp.images.Del(pg.ID)
	img := make([]byte, len(pg.Data))
	copy(img, pg.Data)
	bp.images.Set(pg.ID, img, int64(len(img)))
	bp.images.Wait()
}

// removeFrame drops a frame from the pool and the LRU order.
// Assumes lock is already held
func (bp *BufferPool) removeFrame(pageID int64) {
	delete(bp.frames, pageID)
	for i, id := range bp.accessOrder {
		if id == pageID {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
}

// updateAccessOrder moves a page to the end of access order (most recently used)
// Assumes lock is already held
func (bp *BufferPool) updateAccessOrder(pageID int64) {
	for i, id := range bp.accessOrder {
		if id == pageID {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
	bp.accessOrder = append(bp.accessOrder, pageID)
}
