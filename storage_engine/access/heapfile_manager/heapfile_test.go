package heapfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"SlotDB/storage_engine/bufferpool"
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 200 byte records cost 204 bytes with their slot, so a page holds 19.
const (
	testRecordSize = 200
	recordsPerPage = PageDataSize / (testRecordSize + SlotSize)
)

func newTestManager(t *testing.T, dir string, poolPages int, cacheBytes int64) *HeapFileManager {
	t.Helper()
	return newTestManagerWithChecksums(t, dir, poolPages, cacheBytes, true)
}

func newTestManagerWithChecksums(t *testing.T, dir string, poolPages int, cacheBytes int64, verify bool) *HeapFileManager {
	t.Helper()
	dm := diskmanager.NewDiskManager(verify)
	bp, err := bufferpool.NewBufferPool(poolPages, cacheBytes, dm)
	require.NoError(t, err)
	hfm, err := NewHeapFileManager(dir, dm, bp)
	require.NoError(t, err)
	return hfm
}

func closeManager(t *testing.T, hfm *HeapFileManager) {
	t.Helper()
	require.NoError(t, hfm.CloseAll())
	require.NoError(t, hfm.bufferPool.Close())
	require.NoError(t, hfm.diskManager.CloseAll())
}

func testRecord(i int) []byte {
	rec := bytes.Repeat([]byte{'.'}, testRecordSize)
	copy(rec, fmt.Sprintf("row-%04d|", i))
	return rec
}

func TestHeapFileInsertSpansPages(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 64, 0)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("students")
	require.NoError(t, err)

	const n = 100
	rids := make([]types.RecordID, n)
	for i := 0; i < n; i++ {
		rids[i], err = hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
	}

	for i, r := range rids {
		assert.Equal(t, types.PageID(i/recordsPerPage), r.PageID, "record %d", i)
		assert.Equal(t, i%recordsPerPage, r.SlotNo, "record %d", i)

		got, err := hf.GetRecord(r)
		require.NoError(t, err)
		assert.Equal(t, testRecord(i), got)
	}

	st, err := hf.Stats()
	require.NoError(t, err)
	assert.Equal(t, (n+recordsPerPage-1)/recordsPerPage, st.Pages)
	assert.Equal(t, n, st.Records)
	assert.Zero(t, st.Holes)
	assert.Equal(t, n*testRecordSize, st.UsedBytes)
}

func TestHeapFilePageChainLinks(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 64, 0)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("chain")
	require.NoError(t, err)
	for i := 0; i < 3*recordsPerPage; i++ {
		_, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
	}

	var links [][2]types.PageID
	require.NoError(t, hf.walkPages(false, func(hp *HeapPage) error {
		links = append(links, [2]types.PageID{hp.GetPrevPage(), hp.GetNextPage()})
		return nil
	}))
	assert.Equal(t, [][2]types.PageID{
		{types.InvalidPageID, 1},
		{0, 2},
		{1, types.InvalidPageID},
	}, links)
}

func TestHeapFileRecordSizeLimit(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 8, 0)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("big")
	require.NoError(t, err)

	_, err = hf.InsertRecord(make([]byte, MaxRecordSize+1))
	assert.ErrorIs(t, err, ErrRecordTooLarge)

	_, err = hf.InsertRecord([]byte("small"))
	require.NoError(t, err)

	// does not fit next to "small", so it gets a page of its own
	r, err := hf.InsertRecord(bytes.Repeat([]byte{1}, MaxRecordSize))
	require.NoError(t, err)
	assert.Equal(t, types.RecordID{PageID: 1, SlotNo: 0}, r)
}

func TestHeapFileInsertReusesEarlierPage(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 16, 0)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("reuse")
	require.NoError(t, err)
	for i := 0; i < 2*recordsPerPage; i++ {
		_, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
	}

	require.NoError(t, hf.DeleteRecord(types.RecordID{PageID: 0, SlotNo: 3}))

	r, err := hf.InsertRecord(bytes.Repeat([]byte{'x'}, 300))
	require.NoError(t, err)
	assert.Equal(t, types.RecordID{PageID: 0, SlotNo: 3}, r)

	// page 0 is full again; the next record goes to the tail
	r, err = hf.InsertRecord(bytes.Repeat([]byte{'y'}, 300))
	require.NoError(t, err)
	assert.Equal(t, types.PageID(2), r.PageID)
}

func TestHeapFileDelete(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 16, 0)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("del")
	require.NoError(t, err)

	var rids []types.RecordID
	for i := 0; i < 10; i++ {
		r, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
		rids = append(rids, r)
	}

	require.NoError(t, hf.DeleteRecord(rids[4]))
	_, err = hf.GetRecord(rids[4])
	assert.ErrorIs(t, err, ErrSlotEmpty)
	assert.ErrorIs(t, hf.DeleteRecord(rids[4]), ErrSlotEmpty)

	for i, r := range rids {
		if i == 4 {
			continue
		}
		got, err := hf.GetRecord(r)
		require.NoError(t, err)
		assert.Equal(t, testRecord(i), got)
	}

	_, err = hf.GetRecord(types.RecordID{PageID: 9, SlotNo: 0})
	assert.ErrorIs(t, err, diskmanager.ErrPageOutOfRange)
	_, err = hf.GetRecord(types.RecordID{PageID: 0, SlotNo: 10})
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestHeapFileScan(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 16, 0)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("scan")
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		_, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
	}
	deleted := map[int]bool{0: true, 7: true, 18: true, 19: true, 49: true}
	for i := range deleted {
		r := types.RecordID{PageID: types.PageID(i / recordsPerPage), SlotNo: i % recordsPerPage}
		require.NoError(t, hf.DeleteRecord(r))
	}

	var got []string
	require.NoError(t, hf.Scan().ForEach(func(rid types.RecordID, data []byte) error {
		got = append(got, string(data[:8]))
		return nil
	}))

	var want []string
	for i := 0; i < n; i++ {
		if !deleted[i] {
			want = append(want, fmt.Sprintf("row-%04d", i))
		}
	}
	assert.Equal(t, want, got)
}

func TestHeapFileScanSurvivesDeletingCurrent(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 16, 0)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("scandel")
	require.NoError(t, err)
	for i := 0; i < recordsPerPage+3; i++ {
		_, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
	}

	// deleting every record as it is visited also trims the directory tail
	seen := 0
	scan := hf.Scan()
	for {
		rid, _, err := scan.Next()
		if err != nil {
			assert.ErrorIs(t, err, ErrNoMoreRecords)
			break
		}
		require.NoError(t, hf.DeleteRecord(rid))
		seen++
	}
	assert.Equal(t, recordsPerPage+3, seen)

	st, err := hf.Stats()
	require.NoError(t, err)
	assert.Zero(t, st.Records)
}

func TestHeapFileCompactPages(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 16, 0)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("compact")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
	}
	for _, slot := range []int{1, 3, 5} {
		require.NoError(t, hf.DeleteRecord(types.RecordID{PageID: 0, SlotNo: slot}))
	}

	before, err := hf.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, before.Holes)

	removed, err := hf.CompactPages()
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	after, err := hf.Stats()
	require.NoError(t, err)
	assert.Zero(t, after.Holes)
	assert.Equal(t, 7, after.Records)
	assert.Equal(t, before.FreeBytes+3*SlotSize, after.FreeBytes)
	assert.Equal(t, before.UsedBytes, after.UsedBytes)

	got, err := hf.GetRecord(types.RecordID{PageID: 0, SlotNo: 1})
	require.NoError(t, err)
	assert.Equal(t, testRecord(2), got)
}

func TestHeapFileReopen(t *testing.T) {
	dir := t.TempDir()
	hfm := newTestManager(t, dir, 4, 0)

	hf, err := hfm.CreateHeapFile("persist")
	require.NoError(t, err)
	var rids []types.RecordID
	for i := 0; i < 60; i++ {
		r, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
		rids = append(rids, r)
	}
	require.NoError(t, hf.DeleteRecord(rids[10]))
	closeManager(t, hfm)

	hfm = newTestManager(t, dir, 4, 0)
	defer closeManager(t, hfm)

	tables, err := hfm.ListTables()
	require.NoError(t, err)
	assert.Equal(t, []string{"persist"}, tables)

	hf, err = hfm.OpenHeapFile("persist")
	require.NoError(t, err)
	for i, r := range rids {
		got, err := hf.GetRecord(r)
		if i == 10 {
			assert.ErrorIs(t, err, ErrSlotEmpty)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, testRecord(i), got)
	}

	again, err := hfm.OpenHeapFile("persist")
	require.NoError(t, err)
	assert.Same(t, hf, again)
}

func TestHeapFileSmallPoolWithImageCache(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 2, 1<<20)
	defer closeManager(t, hfm)

	hf, err := hfm.CreateHeapFile("evict")
	require.NoError(t, err)

	var rids []types.RecordID
	for i := 0; i < 6*recordsPerPage; i++ {
		r, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
		rids = append(rids, r)
	}
	for i, r := range rids {
		got, err := hf.GetRecord(r)
		require.NoError(t, err)
		assert.Equal(t, testRecord(i), got)
	}

	st := hfm.bufferPool.GetStats()
	assert.LessOrEqual(t, st.TotalPages, 2)
	assert.NotZero(t, st.Evictions)
}

func TestHeapFileManagerErrors(t *testing.T) {
	hfm := newTestManager(t, t.TempDir(), 8, 0)
	defer closeManager(t, hfm)

	_, err := hfm.CreateHeapFile("")
	assert.Error(t, err)

	_, err = hfm.CreateHeapFile("dup")
	require.NoError(t, err)
	_, err = hfm.CreateHeapFile("dup")
	assert.ErrorIs(t, err, ErrHeapFileExists)

	_, err = hfm.OpenHeapFile("missing")
	assert.ErrorIs(t, err, ErrHeapFileNotFound)
	_, err = hfm.GetHeapFile("missing")
	assert.ErrorIs(t, err, ErrHeapFileNotFound)
	assert.ErrorIs(t, hfm.CloseHeapFile("missing"), ErrHeapFileNotFound)

	require.NoError(t, hfm.CloseHeapFile("dup"))
	_, err = hfm.GetHeapFile("dup")
	assert.ErrorIs(t, err, ErrHeapFileNotFound)
	_, err = hfm.CreateHeapFile("dup")
	assert.ErrorIs(t, err, ErrHeapFileExists)
}

func TestInspectHeapFile(t *testing.T) {
	dir := t.TempDir()
	hfm := newTestManager(t, dir, 8, 0)

	hf, err := hfm.CreateHeapFile("inspect")
	require.NoError(t, err)
	for i := 0; i < recordsPerPage+1; i++ {
		_, err := hf.InsertRecord(testRecord(i))
		require.NoError(t, err)
	}
	require.NoError(t, hf.DeleteRecord(types.RecordID{PageID: 0, SlotNo: 0}))
	closeManager(t, hfm)

	var out strings.Builder
	require.NoError(t, InspectHeapFileTo(&out, filepath.Join(dir, "inspect.heap"), true))

	dump := out.String()
	assert.Contains(t, dump, "[page 0] id=0 prev=- next=1")
	assert.Contains(t, dump, "[page 1] id=1 prev=0 next=-")
	assert.Contains(t, dump, "slot   0: <empty>")
	assert.Contains(t, dump, fmt.Sprintf("total: %d records", recordsPerPage))
}

func TestHeapFileCorruptSlotCountOnDisk(t *testing.T) {
	dir := t.TempDir()
	hfm := newTestManager(t, dir, 8, 0)
	hf, err := hfm.CreateHeapFile("t")
	require.NoError(t, err)
	_, err = hf.InsertRecord([]byte("abc"))
	require.NoError(t, err)
	closeManager(t, hfm)

	// a slot count far past the fill offset
	f, err := os.OpenFile(filepath.Join(dir, "t.heap"), os.O_RDWR, 0644)
	require.NoError(t, err)
	var raw [2]byte
	binary.LittleEndian.PutUint16(raw[:], 5000)
	_, err = f.WriteAt(raw[:], heapOffSlotCount)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	hfm = newTestManager(t, dir, 8, 0)
	hf, err = hfm.OpenHeapFile("t")
	require.NoError(t, err)
	_, err = hf.Stats()
	assert.ErrorIs(t, err, diskmanager.ErrChecksumMismatch)
	closeManager(t, hfm)

	hfm = newTestManagerWithChecksums(t, dir, 8, 0, false)
	defer closeManager(t, hfm)
	hf, err = hfm.OpenHeapFile("t")
	require.NoError(t, err)

	_, err = hf.Stats()
	assert.ErrorIs(t, err, ErrCorruptPage)
	_, err = hf.GetRecord(types.RecordID{PageID: 0, SlotNo: 0})
	assert.ErrorIs(t, err, ErrCorruptPage)
	_, err = hf.InsertRecord([]byte("more"))
	assert.ErrorIs(t, err, ErrCorruptPage)
	assert.ErrorIs(t, hf.DeleteRecord(types.RecordID{PageID: 0, SlotNo: 0}), ErrCorruptPage)
	_, _, err = hf.Scan().Next()
	assert.ErrorIs(t, err, ErrCorruptPage)
	_, err = hf.CompactPages()
	assert.ErrorIs(t, err, ErrCorruptPage)
}

func TestHeapFileTableNames(t *testing.T) {
	dir := t.TempDir()
	hfm := newTestManager(t, filepath.Join(dir, "data"), 8, 0)
	defer closeManager(t, hfm)

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`, "/abs"} {
		_, err := hfm.CreateHeapFile(name)
		assert.ErrorIs(t, err, ErrBadTableName, "create %q", name)
		_, err = hfm.OpenHeapFile(name)
		assert.ErrorIs(t, err, ErrBadTableName, "open %q", name)
	}

	_, err := os.Stat(filepath.Join(dir, "x.heap"))
	assert.True(t, os.IsNotExist(err))

	_, err = hfm.CreateHeapFile("plain_name-1")
	assert.NoError(t, err)
}
