package heapfile

import (
	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"sync"

	"github.com/sirupsen/logrus"
)

// HeapFile is a doubly linked chain of heap pages starting at local page 0.
type HeapFile struct {
	fileID      uint32 // disk manager file id, session scoped
	tableName   string // table this heap file belongs to
	filePath    string
	diskManager *diskmanager.DiskManager
	bufferPool  *bufferpool.BufferPool
	log         *logrus.Entry
	mu          sync.RWMutex
}

// HeapFileManager manages all heap files
type HeapFileManager struct {
	baseDir     string
	files       map[uint32]*HeapFile
	tableIndex  map[string]uint32 // tableName → fileID
	bufferPool  *bufferpool.BufferPool
	diskManager *diskmanager.DiskManager
	log         *logrus.Entry
	mu          sync.RWMutex
}

// HeapFileStats summarises the pages of one heap file.
type HeapFileStats struct {
	Pages     int
	Records   int
	Holes     int // empty slot directory entries
	UsedBytes int // record payload bytes
	FreeBytes int // sum of per-page FreeSpace
}
