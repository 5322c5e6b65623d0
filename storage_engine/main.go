package storageengine

import (
	"SlotDB/config"
	"SlotDB/logger"
	heapfile "SlotDB/storage_engine/access/heapfile_manager"
	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"

	"github.com/pkg/errors"
)

/*
The main file of storage engine, that initializes the disk manager, buffer pool
and heap file manager from the configuration.
Tables map one-to-one onto heap files in the data directory.
*/

func NewStorageEngine(cfg *config.Config) (*StorageEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dm := diskmanager.NewDiskManager(cfg.VerifyChecksums)
	bp, err := bufferpool.NewBufferPool(cfg.BufferPoolPages, cfg.PageCacheBytes, dm)
	if err != nil {
		return nil, errors.WithMessage(err, "init buffer pool")
	}
	hfm, err := heapfile.NewHeapFileManager(cfg.DataDir, dm, bp)
	if err != nil {
		return nil, errors.WithMessage(err, "init heap file manager")
	}

	return &StorageEngine{
		BufferPool:  bp,
		DiskManager: dm,
		HeapManager: hfm,
		DataDir:     cfg.DataDir,
		log:         logger.For("StorageEngine"),
	}, nil
}

// CreateTable creates an empty heap file for tableName.
func (se *StorageEngine) CreateTable(tableName string) (*heapfile.HeapFile, error) {
	return se.HeapManager.CreateHeapFile(tableName)
}

// Table opens the heap file of an existing table.
func (se *StorageEngine) Table(tableName string) (*heapfile.HeapFile, error) {
	return se.HeapManager.OpenHeapFile(tableName)
}

// Flush writes every dirty page and syncs the files.
func (se *StorageEngine) Flush() error {
	if err := se.BufferPool.FlushAllPages(); err != nil {
		return err
	}
	return se.DiskManager.Sync()
}

// Close flushes everything and releases all files.
func (se *StorageEngine) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	keep(se.HeapManager.CloseAll())
	keep(se.BufferPool.Close())
	keep(se.DiskManager.CloseAll())

	if firstErr != nil {
		se.log.Warnf("close: %v", firstErr)
	}
	return firstErr
}
