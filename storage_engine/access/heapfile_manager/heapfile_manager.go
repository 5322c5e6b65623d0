package heapfile

import (
	"SlotDB/logger"
	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/types"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

/*
This file is the start of the heapfile manager
This is responsible for creation of heapfile, which is ultimately initialization of heap pages

Heapfile manager knows Disk Manager for file related operations like OpenFile, CloseFile
and it also knows the Buffer Pool to Add the created/accessed pages to the cache
*/

const heapFileExt = ".heap"

// NewHeapFileManager creates a new heap file manager
func NewHeapFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool) (*HeapFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create heap directory")
	}
	return &HeapFileManager{
		baseDir:     baseDir,
		files:       make(map[uint32]*HeapFile),
		tableIndex:  make(map[string]uint32),
		diskManager: diskManager,
		bufferPool:  bufferPool,
		log:         logger.For("HeapFileManager"),
	}, nil
}

// checkTableName keeps heap files inside baseDir: the name becomes
// <baseDir>/<name>.heap, so it must not carry a directory part.
func checkTableName(tableName string) error {
	if tableName == "" || tableName == "." || tableName == ".." ||
		strings.ContainsAny(tableName, `/\`) || filepath.Base(tableName) != tableName {
		return errors.Wrapf(ErrBadTableName, "%q", tableName)
	}
	return nil
}

func (hfm *HeapFileManager) heapPath(tableName string) string {
	return filepath.Join(hfm.baseDir, tableName+heapFileExt)
}

// Chain of command this function drives:
//  1. DiskManager.OpenFile  → creates the OS file, returns a fileID
//  2. BufferPool.NewPage    → allocates page 0 (RAM only, dirty)
//  3. InitHeapPage          → writes header fields into the in-RAM buffer
//  4. BufferPool.UnpinPage  → caller is done; pool may flush when it needs space
func (hfm *HeapFileManager) CreateHeapFile(tableName string) (*HeapFile, error) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if err := checkTableName(tableName); err != nil {
		return nil, errors.WithMessage(err, "CreateHeapFile")
	}
	if _, exists := hfm.tableIndex[tableName]; exists {
		return nil, errors.Wrapf(ErrHeapFileExists, "table %q already open", tableName)
	}

	heapPath := hfm.heapPath(tableName)
	if _, err := os.Stat(heapPath); err == nil {
		return nil, errors.Wrapf(ErrHeapFileExists, "%s", heapPath)
	}

	fileID, err := hfm.diskManager.OpenFile(heapPath)
	if err != nil {
		return nil, errors.WithMessage(err, "create heap file")
	}

	pg, err := hfm.bufferPool.NewPage(fileID, types.PageTypeHeapData)
	if err != nil {
		_ = hfm.diskManager.CloseFile(fileID)
		return nil, errors.WithMessage(err, "allocate first heap page")
	}
	InitHeapPage(pg, types.PageID(diskmanager.LocalPageNum(pg.ID)))

	if err := hfm.bufferPool.UnpinPage(pg.ID, true); err != nil {
		_ = hfm.diskManager.CloseFile(fileID)
		return nil, errors.WithMessage(err, "unpin first heap page")
	}

	hf := hfm.register(tableName, heapPath, fileID)
	hfm.log.WithField("file_id", fileID).Infof("created heap file for table %s", tableName)
	return hf, nil
}

// OpenHeapFile returns the open heap file for tableName, loading it from disk
// if needed.
func (hfm *HeapFileManager) OpenHeapFile(tableName string) (*HeapFile, error) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if err := checkTableName(tableName); err != nil {
		return nil, errors.WithMessage(err, "OpenHeapFile")
	}
	if fileID, exists := hfm.tableIndex[tableName]; exists {
		return hfm.files[fileID], nil
	}

	heapPath := hfm.heapPath(tableName)
	if _, err := os.Stat(heapPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrHeapFileNotFound, "table %q", tableName)
	}

	fileID, err := hfm.diskManager.OpenFile(heapPath)
	if err != nil {
		return nil, errors.WithMessage(err, "open heap file")
	}
	numPages, err := hfm.diskManager.NumPages(fileID)
	if err != nil {
		return nil, err
	}
	if numPages == 0 {
		_ = hfm.diskManager.CloseFile(fileID)
		return nil, errors.Wrapf(ErrCorruptPage, "heap file %s has no pages", heapPath)
	}

	hf := hfm.register(tableName, heapPath, fileID)
	hfm.log.WithField("file_id", fileID).WithField("pages", numPages).Infof("loaded heap file for table %s", tableName)
	return hf, nil
}

// register assumes hfm.mu is held.
func (hfm *HeapFileManager) register(tableName, heapPath string, fileID uint32) *HeapFile {
	hf := &HeapFile{
		fileID:      fileID,
		tableName:   tableName,
		filePath:    heapPath,
		diskManager: hfm.diskManager,
		bufferPool:  hfm.bufferPool,
		log:         logger.For("Heap").WithField("table", tableName),
	}
	hfm.files[fileID] = hf
	hfm.tableIndex[tableName] = fileID
	return hf
}

// CloseHeapFile flushes the table's pages and closes its file.
func (hfm *HeapFileManager) CloseHeapFile(tableName string) error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	fileID, exists := hfm.tableIndex[tableName]
	if !exists {
		return errors.Wrapf(ErrHeapFileNotFound, "table %q", tableName)
	}
	return hfm.closeLocked(tableName, fileID)
}

// CloseAll closes every open heap file.
func (hfm *HeapFileManager) CloseAll() error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	var firstErr error
	for tableName, fileID := range hfm.tableIndex {
		if err := hfm.closeLocked(tableName, fileID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (hfm *HeapFileManager) closeLocked(tableName string, fileID uint32) error {
	hf := hfm.files[fileID]
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if err := hfm.bufferPool.DropFile(fileID); err != nil {
		return errors.WithMessagef(err, "close table %s", tableName)
	}
	if err := hfm.diskManager.CloseFile(fileID); err != nil {
		return errors.WithMessagef(err, "close table %s", tableName)
	}
	delete(hfm.files, fileID)
	delete(hfm.tableIndex, tableName)
	return nil
}
