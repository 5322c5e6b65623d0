package storageengine

import (
	heapfile "SlotDB/storage_engine/access/heapfile_manager"
	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"

	"github.com/sirupsen/logrus"
)

// StorageEngine wires the disk manager, buffer pool and heap file manager
// together for one data directory.
type StorageEngine struct {
	BufferPool  *bufferpool.BufferPool
	DiskManager *diskmanager.DiskManager
	HeapManager *heapfile.HeapFileManager

	DataDir string
	log     *logrus.Entry
}
