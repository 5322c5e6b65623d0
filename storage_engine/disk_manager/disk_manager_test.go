package diskmanager

import (
	"os"
	"path/filepath"
	"testing"

	"SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestFile(t *testing.T, dm *DiskManager) (uint32, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.heap")
	fileID, err := dm.OpenFile(path)
	require.NoError(t, err)
	return fileID, path
}

func TestPageIDEncoding(t *testing.T) {
	g := GlobalPageID(3, 17)
	assert.Equal(t, uint32(3), FileIDOf(g))
	assert.Equal(t, int64(17), LocalPageNum(g))
}

func TestWriteReadRoundTrip(t *testing.T) {
	dm := NewDiskManager(true)
	defer dm.CloseAll()
	fileID, _ := openTestFile(t, dm)

	id, err := dm.AllocatePage(fileID)
	require.NoError(t, err)
	assert.Equal(t, GlobalPageID(fileID, 0), id)

	pg := page.New(id, fileID, types.PageTypeHeapData)
	copy(pg.Data[64:], "payload")
	pg.IsDirty = true
	require.NoError(t, dm.WritePage(pg))
	assert.False(t, pg.IsDirty)

	back, err := dm.ReadPage(id)
	require.NoError(t, err)
	assert.Equal(t, pg.Data, back.Data)
	assert.Equal(t, types.PageTypeHeapData, back.PageType)
	assert.Equal(t, fileID, back.FileID)
}

func TestReadAllocatedButUnwrittenPage(t *testing.T) {
	dm := NewDiskManager(true)
	defer dm.CloseAll()
	fileID, _ := openTestFile(t, dm)

	id, err := dm.AllocatePage(fileID)
	require.NoError(t, err)

	pg, err := dm.ReadPage(id)
	require.NoError(t, err)
	assert.Equal(t, types.PageTypeUnknown, pg.PageType)
	assert.Equal(t, make([]byte, page.PageSize), pg.Data)

	n, err := dm.NumPages(fileID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReadPageOutOfRange(t *testing.T) {
	dm := NewDiskManager(true)
	defer dm.CloseAll()
	fileID, _ := openTestFile(t, dm)

	_, err := dm.ReadPage(GlobalPageID(fileID, 0))
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, err = dm.ReadPage(GlobalPageID(fileID+1, 0))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestChecksumMismatch(t *testing.T) {
	dm := NewDiskManager(true)
	fileID, path := openTestFile(t, dm)

	id, err := dm.AllocatePage(fileID)
	require.NoError(t, err)
	pg := page.New(id, fileID, types.PageTypeHeapData)
	copy(pg.Data[100:], "intact")
	require.NoError(t, dm.WritePage(pg))
	require.NoError(t, dm.CloseFile(fileID))

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("X"), 100)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fileID, err = dm.OpenFile(path)
	require.NoError(t, err)
	_, err = dm.ReadPage(GlobalPageID(fileID, 0))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	require.NoError(t, dm.CloseAll())

	lenient := NewDiskManager(false)
	defer lenient.CloseAll()
	fileID, err = lenient.OpenFile(path)
	require.NoError(t, err)
	back, err := lenient.ReadPage(GlobalPageID(fileID, 0))
	require.NoError(t, err)
	assert.Equal(t, "Xntact", string(back.Data[100:106]))
}

func TestOpenFile(t *testing.T) {
	dm := NewDiskManager(true)
	defer dm.CloseAll()

	path := filepath.Join(t.TempDir(), "a.heap")
	first, err := dm.OpenFile(path)
	require.NoError(t, err)
	again, err := dm.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = dm.OpenFileWithID(filepath.Join(t.TempDir(), "b.heap"), first)
	assert.Error(t, err)

	torn := filepath.Join(t.TempDir(), "torn.heap")
	require.NoError(t, os.WriteFile(torn, make([]byte, page.PageSize+10), 0644))
	_, err = dm.OpenFile(torn)
	assert.Error(t, err)
}

func TestCloseFile(t *testing.T) {
	dm := NewDiskManager(true)
	fileID, _ := openTestFile(t, dm)

	require.NoError(t, dm.CloseFile(fileID))
	assert.ErrorIs(t, dm.CloseFile(fileID), ErrFileNotFound)

	_, err := dm.AllocatePage(fileID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}
