package bufferpool

import (
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/storage_engine/page"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrAllPinned   = errors.New("all pages are pinned, cannot evict")
	ErrNotResident = errors.New("page not in buffer pool")
	ErrPagePinned  = errors.New("page is pinned")
)

// ############################################# BUFFER POOL #############################################

// BufferPool manages the resident frames with LRU eviction.
// Evicted clean page images are kept in a ristretto cache so that a refetch
// can skip the disk read.
type BufferPool struct {
	frames      map[int64]*page.Page // pageID -> Page
	capacity    int
	diskManager *diskmanager.DiskManager
	images      *ristretto.Cache[int64, []byte] // nil when disabled
	accessOrder []int64                         // LRU tracking: most recently used at end
	stats       counters
	log         *logrus.Entry
	mu          sync.Mutex
}

type counters struct {
	hits       uint64
	cacheHits  uint64
	misses     uint64
	evictions  uint64
	writebacks uint64
}

// BufferPoolStats is a snapshot of the pool
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
	Hits        uint64 // resident frame found
	CacheHits   uint64 // rebuilt from the page image cache
	Misses      uint64 // read from disk
	Evictions   uint64
	Writebacks  uint64
	HitRate     float64
}
