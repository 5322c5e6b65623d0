package bufferpool

import (
	"SlotDB/storage_engine/page"

	"github.com/pkg/errors"
)

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns current buffer pool statistics
func (bp *BufferPool) GetStats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		TotalPages: len(bp.frames),
		Capacity:   bp.capacity,
		Hits:       bp.stats.hits,
		CacheHits:  bp.stats.cacheHits,
		Misses:     bp.stats.misses,
		Evictions:  bp.stats.evictions,
		Writebacks: bp.stats.writebacks,
	}

	for _, pg := range bp.frames {
		if pg.PinCount > 0 {
			stats.PinnedPages++
		}
		if pg.IsDirty {
			stats.DirtyPages++
		}
	}

	if total := stats.Hits + stats.CacheHits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits+stats.CacheHits) / float64(total)
	}

	return stats
}

// Size returns the current number of pages in the buffer pool
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.frames)
}

// Capacity returns the maximum capacity of the buffer pool
func (bp *BufferPool) Capacity() int {
	return bp.capacity
}

// GetPage returns a page from the buffer pool without loading from disk
// Returns nil if page is not in buffer pool
func (bp *BufferPool) GetPage(pageID int64) *page.Page {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.frames[pageID]
}

// MarkDirty marks a page as dirty (modified)
func (bp *BufferPool) MarkDirty(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.frames[pageID]
	if !exists {
		return errors.Wrapf(ErrNotResident, "mark page %d dirty", pageID)
	}
	pg.IsDirty = true
	return nil
}
