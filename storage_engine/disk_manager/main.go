package diskmanager

import (
	"SlotDB/logger"
	"SlotDB/storage_engine/page"
	"SlotDB/types"
	"encoding/binary"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

/*
This is main file for disk manager
It owns:
File descriptors (os.File)
Reading/writing raw bytes at specific offsets (ReadAt, WriteAt)
Page allocation (tracking NextPageID per file)
Page checksums

Page ID encoding:
globalPageID = int64(fileID) << 32 | localPageNum
so the global id is computed, never looked up.

Every page written through WritePage carries:
	bytes 0-7  xxhash64 of bytes [8, PageSize)
	byte  8    page type
A page whose type byte is still PageTypeUnknown was never formatted and is not checked.
*/

func NewDiskManager(verifyChecksums bool) *DiskManager {
	return &DiskManager{
		files:           make(map[uint32]*FileDescriptor),
		nextFileID:      1,
		verifyChecksums: verifyChecksums,
		log:             logger.For("DiskManager"),
	}
}

func GlobalPageID(fileID uint32, localPageNum int64) int64 {
	return int64(fileID)<<32 | localPageNum
}

func LocalPageNum(globalPageID int64) int64 {
	return globalPageID & 0xFFFFFFFF
}

func FileIDOf(globalPageID int64) uint32 {
	return uint32(globalPageID >> 32)
}

// Checksum computes the checksum stored in the first 8 bytes of a page.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data[page.PageTypeOffset:])
}

// OpenFileWithID opens (or creates) a file under a caller-chosen id.
func (dm *DiskManager) OpenFileWithID(filePath string, fileID uint32) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.openLocked(filePath, fileID)
}

// OpenFile opens or creates a file and assigns the next free file id.
func (dm *DiskManager) OpenFile(filePath string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.openLocked(filePath, dm.nextFileID)
}

func (dm *DiskManager) openLocked(filePath string, fileID uint32) (uint32, error) {
	// Already open, return existing.
	for id, fd := range dm.files {
		if fd.FilePath == filePath {
			return id, nil
		}
	}
	if _, taken := dm.files[fileID]; taken {
		return 0, errors.Errorf("file id %d already in use", fileID)
	}

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return 0, errors.Wrapf(err, "open file %s", filePath)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return 0, errors.Wrapf(err, "stat file %s", filePath)
	}
	if stat.Size()%int64(page.PageSize) != 0 {
		file.Close()
		return 0, errors.Errorf("file %s size %d is not a multiple of the page size", filePath, stat.Size())
	}

	fd := &FileDescriptor{
		FileID:     fileID,
		FilePath:   filePath,
		File:       file,
		NextPageID: stat.Size() / int64(page.PageSize),
	}
	dm.files[fileID] = fd
	if fileID >= dm.nextFileID {
		dm.nextFileID = fileID + 1
	}

	dm.log.WithField("file_id", fileID).WithField("pages", fd.NextPageID).Infof("opened %s", filePath)
	return fileID, nil
}

func (dm *DiskManager) descriptor(fileID uint32) (*FileDescriptor, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return nil, errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}
	return fd, nil
}

// ReadPage reads a page from disk
func (dm *DiskManager) ReadPage(globalPageID int64) (*page.Page, error) {
	fileID := FileIDOf(globalPageID)
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return nil, err
	}

	fd.mu.RLock()
	defer fd.mu.RUnlock()

	if fd.File == nil {
		return nil, errors.Wrapf(ErrFileClosed, "file %d", fileID)
	}

	localPageNum := LocalPageNum(globalPageID)
	if localPageNum >= fd.NextPageID {
		return nil, errors.Wrapf(ErrPageOutOfRange, "page %d of file %d (pages=%d)", localPageNum, fileID, fd.NextPageID)
	}

	pg := page.New(globalPageID, fileID, types.PageTypeUnknown)
	// Allocated but never flushed pages read back as zeroes (short read, io.EOF).
	if _, err := fd.File.ReadAt(pg.Data, localPageNum*int64(page.PageSize)); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "read page %d from file %d", localPageNum, fileID)
	}

	pg.PageType = types.PageType(pg.Data[page.PageTypeOffset])
	if dm.verifyChecksums && pg.PageType != types.PageTypeUnknown {
		stored := binary.LittleEndian.Uint64(pg.Data[page.PageChecksumOffset:])
		if sum := Checksum(pg.Data); sum != stored {
			return nil, errors.Wrapf(ErrChecksumMismatch, "page %d of file %d: stored %x computed %x",
				localPageNum, fileID, stored, sum)
		}
	}

	return pg, nil
}

// WritePage stamps the page type and checksum and writes the page to disk.
func (dm *DiskManager) WritePage(pg *page.Page) error {
	fd, err := dm.descriptor(pg.FileID)
	if err != nil {
		return err
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return errors.Wrapf(ErrFileClosed, "file %d", pg.FileID)
	}
	if len(pg.Data) != page.PageSize {
		return errors.Errorf("page data size %d does not match page size %d", len(pg.Data), page.PageSize)
	}

	pg.Data[page.PageTypeOffset] = byte(pg.PageType)
	binary.LittleEndian.PutUint64(pg.Data[page.PageChecksumOffset:], Checksum(pg.Data))

	localPageNum := LocalPageNum(pg.ID)
	if _, err := fd.File.WriteAt(pg.Data, localPageNum*int64(page.PageSize)); err != nil {
		return errors.Wrapf(err, "write page %d to file %d", localPageNum, pg.FileID)
	}

	if localPageNum >= fd.NextPageID {
		fd.NextPageID = localPageNum + 1
	}

	pg.IsDirty = false
	return nil
}

// AllocatePage reserves the next local page number of a file and returns its
// global id. Nothing is written; the buffer pool flushes the frame later.
func (dm *DiskManager) AllocatePage(fileID uint32) (int64, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, err
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return 0, errors.Wrapf(ErrFileClosed, "file %d", fileID)
	}

	localPageNum := fd.NextPageID
	fd.NextPageID++
	return GlobalPageID(fileID, localPageNum), nil
}

// NumPages returns the number of pages allocated in a file, flushed or not.
func (dm *DiskManager) NumPages(fileID uint32) (int64, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, err
	}
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	return fd.NextPageID, nil
}

// Sync flushes all file buffers to disk
func (dm *DiskManager) Sync() error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	for _, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fd.File.Sync(); err != nil {
				fd.mu.Unlock()
				return errors.Wrapf(err, "sync file %d", fd.FileID)
			}
		}
		fd.mu.Unlock()
	}

	return nil
}

// CloseFile syncs and closes a specific file
func (dm *DiskManager) CloseFile(fileID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	delete(dm.files, fileID)
	if fd.File == nil {
		return nil // Already closed
	}

	if err := fd.File.Sync(); err != nil {
		return errors.Wrap(err, "sync before close")
	}
	if err := fd.File.Close(); err != nil {
		return errors.Wrap(err, "close file")
	}
	fd.File = nil

	dm.log.WithField("file_id", fileID).Infof("closed %s", fd.FilePath)
	return nil
}

// CloseAll closes all open files
func (dm *DiskManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var lastErr error
	for fileID, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fd.File.Sync(); err != nil {
				lastErr = err
			}
			if err := fd.File.Close(); err != nil {
				lastErr = err
			}
			fd.File = nil
		}
		fd.mu.Unlock()
		delete(dm.files, fileID)
	}

	return lastErr
}
