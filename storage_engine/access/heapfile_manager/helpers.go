package heapfile

import (
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/types"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

/*
This file contains helpers related to HeapFileManager and Heapfile
*/

func (hfm *HeapFileManager) BaseDir() string {
	return hfm.baseDir
}

func (hfm *HeapFileManager) GetHeapFile(tableName string) (*HeapFile, error) {
	hfm.mu.RLock()
	defer hfm.mu.RUnlock()

	fileID, exists := hfm.tableIndex[tableName]
	if !exists {
		return nil, errors.Wrapf(ErrHeapFileNotFound, "no heap file open for table %q", tableName)
	}

	hf, exists := hfm.files[fileID]
	if !exists {
		return nil, errors.Errorf("heap file index inconsistency for table %q", tableName)
	}

	return hf, nil
}

// ListTables returns the tables that have a heap file in the base directory.
func (hfm *HeapFileManager) ListTables() ([]string, error) {
	entries, err := os.ReadDir(hfm.baseDir)
	if err != nil {
		return nil, errors.Wrap(err, "list heap directory")
	}
	var tables []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), heapFileExt) {
			tables = append(tables, strings.TrimSuffix(e.Name(), heapFileExt))
		}
	}
	sort.Strings(tables)
	return tables, nil
}

/*


Helpers related to HeapFile


*/

func (hf *HeapFile) TableName() string {
	return hf.tableName
}

func (hf *HeapFile) FilePath() string {
	return hf.filePath
}

// withPage pins local page pid, latches it for the duration of fn and unpins it.
// A page that fails Verify is reported as ErrCorruptPage and fn is not called.
func (hf *HeapFile) withPage(pid types.PageID, write bool, fn func(hp *HeapPage) error) error {
	numPages, err := hf.diskManager.NumPages(hf.fileID)
	if err != nil {
		return err
	}
	if !pid.Valid() || int64(pid) >= numPages {
		return errors.Wrapf(diskmanager.ErrPageOutOfRange, "page %d of table %s (pages=%d)", pid, hf.tableName, numPages)
	}

	globalPageID := diskmanager.GlobalPageID(hf.fileID, int64(pid))
	pg, err := hf.bufferPool.FetchPage(globalPageID)
	if err != nil {
		return errors.WithMessagef(err, "fetch page %d", pid)
	}

	if write {
		pg.Lock()
	} else {
		pg.RLock()
	}
	// Frames can come back from disk unchecked (checksums off), so the layout is
	// validated before any slot is read.
	hp, err := LoadHeapPage(pg)
	if err == nil {
		err = fn(hp)
	}
	dirty := pg.IsDirty
	if write {
		pg.Unlock()
	} else {
		pg.RUnlock()
	}

	if uerr := hf.bufferPool.UnpinPage(globalPageID, write && dirty); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

// walkPages calls fn for every page in chain order, following NextPage links.
// A link that revisits a page is reported as corruption.
func (hf *HeapFile) walkPages(write bool, fn func(hp *HeapPage) error) error {
	numPages, err := hf.diskManager.NumPages(hf.fileID)
	if err != nil {
		return err
	}

	pid := types.PageID(0)
	for visited := int64(0); pid.Valid(); visited++ {
		if visited >= numPages {
			return errors.Wrapf(ErrCorruptPage, "page chain of table %s loops", hf.tableName)
		}
		var next types.PageID
		err := hf.withPage(pid, write, func(hp *HeapPage) error {
			next = hp.GetNextPage()
			return fn(hp)
		})
		if err != nil {
			return err
		}
		pid = next
	}
	return nil
}

// Flush flushes all dirty pages held by the buffer pool
func (hf *HeapFile) Flush() error {
	return hf.bufferPool.FlushAllPages()
}
