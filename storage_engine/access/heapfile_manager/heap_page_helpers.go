package heapfile

import (
	page "SlotDB/storage_engine/page"
	"SlotDB/types"
	"encoding/binary"

	"github.com/pkg/errors"
)

/*
Heap page binary layout (all values little-endian):

	Offset  Size  Field
	──────────────────────────────────────────────────────
	0       8     Checksum    uint64 stamped by DiskManager on write
	8       1     PageType    uint8  stamped by DiskManager on write
	9       4     PageID      int32
	13      4     NextPage    int32  InvalidPageID when absent
	17      4     PrevPage    int32  InvalidPageID when absent
	21      2     FreeSpace   uint16 bytes between slot dir end and FillOffset
	23      2     SlotCount   uint16 slot entries (live + holes)
	25      2     FillOffset  uint16 low end of the record region
	27      5     reserved
	──────────────────────────────────────────────────────
	32            HeapHeaderSize

Data area (offsets below are relative to HeapHeaderSize):

	[ slot 0 | slot 1 | ... ][      free space      ][ records ... ]
	0                        ^                       ^              PageDataSize
	                         SlotCount*SlotSize      FillOffset

	Slot directory grows FORWARD from the start of the data area.
	Records grow BACKWARD from PageDataSize and are always packed: every byte of
	[FillOffset, PageDataSize) belongs to a live record.

A slot entry is 4 bytes: [ Offset int16 ][ Length int16 ].
A hole stores (-1, -1) and may be reused by the next insert.
*/
const (
	heapOffPageID     = 9  // int32  (4)
	heapOffNextPage   = 13 // int32  (4)
	heapOffPrevPage   = 17 // int32  (4)
	heapOffFreeSpace  = 21 // uint16 (2)
	heapOffSlotCount  = 23 // uint16 (2)
	heapOffFillOffset = 25 // uint16 (2)

	// HeapHeaderSize is the fixed header size in bytes.
	HeapHeaderSize = 32

	// PageDataSize is the byte budget shared by the slot directory and records.
	PageDataSize = page.PageSize - HeapHeaderSize

	// SlotSize is the byte size of one slot entry: Offset(2) + Length(2).
	SlotSize = 4

	// MaxRecordSize is the largest record an empty page accepts.
	MaxRecordSize = PageDataSize - SlotSize

	emptySlotMarker = -1
)

// Slot is one slot directory entry.
type Slot struct {
	Offset int
	Length int
}

func (s Slot) IsEmpty() bool {
	return s.Length == emptySlotMarker
}

var emptySlot = Slot{Offset: emptySlotMarker, Length: emptySlotMarker}

// ─────────────────────────────────────────────────────────────────────────────
// Header accessors
// ─────────────────────────────────────────────────────────────────────────────

func (hp *HeapPage) PageID() types.PageID {
	return types.PageID(int32(binary.LittleEndian.Uint32(hp.pg.Data[heapOffPageID:])))
}
func (hp *HeapPage) setPageID(id types.PageID) {
	binary.LittleEndian.PutUint32(hp.pg.Data[heapOffPageID:], uint32(int32(id)))
}

func (hp *HeapPage) GetNextPage() types.PageID {
	return types.PageID(int32(binary.LittleEndian.Uint32(hp.pg.Data[heapOffNextPage:])))
}
func (hp *HeapPage) SetNextPage(id types.PageID) {
	binary.LittleEndian.PutUint32(hp.pg.Data[heapOffNextPage:], uint32(int32(id)))
	hp.pg.Touch()
}

func (hp *HeapPage) GetPrevPage() types.PageID {
	return types.PageID(int32(binary.LittleEndian.Uint32(hp.pg.Data[heapOffPrevPage:])))
}
func (hp *HeapPage) SetPrevPage(id types.PageID) {
	binary.LittleEndian.PutUint32(hp.pg.Data[heapOffPrevPage:], uint32(int32(id)))
	hp.pg.Touch()
}

// FreeSpace is the raw number of unused bytes between the slot directory and
// the record region. Use AvailableSpace to ask whether a record fits.
func (hp *HeapPage) FreeSpace() int {
	return int(binary.LittleEndian.Uint16(hp.pg.Data[heapOffFreeSpace:]))
}
func (hp *HeapPage) setFreeSpace(v int) {
	binary.LittleEndian.PutUint16(hp.pg.Data[heapOffFreeSpace:], uint16(v))
}

func (hp *HeapPage) SlotCount() int {
	return int(binary.LittleEndian.Uint16(hp.pg.Data[heapOffSlotCount:]))
}
func (hp *HeapPage) setSlotCount(n int) {
	binary.LittleEndian.PutUint16(hp.pg.Data[heapOffSlotCount:], uint16(n))
}

func (hp *HeapPage) FillOffset() int {
	return int(binary.LittleEndian.Uint16(hp.pg.Data[heapOffFillOffset:]))
}
func (hp *HeapPage) setFillOffset(v int) {
	binary.LittleEndian.PutUint16(hp.pg.Data[heapOffFillOffset:], uint16(v))
}

// ─────────────────────────────────────────────────────────────────────────────
// Data area
// ─────────────────────────────────────────────────────────────────────────────

// dataArea is the PageDataSize window that slot offsets are relative to.
func (hp *HeapPage) dataArea() []byte {
	return hp.pg.Data[HeapHeaderSize:page.PageSize]
}

// region returns data-area bytes [off, off+n) after checking they lie inside
// the record region.
func (hp *HeapPage) region(off, n int) ([]byte, error) {
	if n < 0 || off < hp.FillOffset() || off+n > PageDataSize {
		return nil, errors.Wrapf(ErrCorruptPage, "record bytes [%d,%d) outside record region [%d,%d)",
			off, off+n, hp.FillOffset(), PageDataSize)
	}
	return hp.dataArea()[off : off+n], nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Slot directory
// ─────────────────────────────────────────────────────────────────────────────

// slotByteOffset returns the data-area offset where slot i begins.
//
//	slot 0: bytes 0–3
//	slot 1: bytes 4–7
//	slot i: i*SlotSize
func slotByteOffset(i int) int {
	return i * SlotSize
}

// Slot returns directory entry i. i must be below SlotCount.
func (hp *HeapPage) Slot(i int) (Slot, error) {
	if i < 0 || i >= hp.SlotCount() {
		return Slot{}, errors.Wrapf(ErrInvalidSlot, "slot %d (count=%d)", i, hp.SlotCount())
	}
	return hp.readSlot(i), nil
}

func (hp *HeapPage) readSlot(i int) Slot {
	base := slotByteOffset(i)
	data := hp.dataArea()
	return Slot{
		Offset: int(int16(binary.LittleEndian.Uint16(data[base:]))),
		Length: int(int16(binary.LittleEndian.Uint16(data[base+2:]))),
	}
}

// putSlot writes directory entry i. i may equal SlotCount when a new entry is
// being appended; the entry must still end before FillOffset.
func (hp *HeapPage) putSlot(i int, s Slot) error {
	if i < 0 || i > hp.SlotCount() || slotByteOffset(i+1) > hp.FillOffset() {
		return errors.Wrapf(ErrCorruptPage, "slot %d outside directory (count=%d fill=%d)",
			i, hp.SlotCount(), hp.FillOffset())
	}
	base := slotByteOffset(i)
	data := hp.dataArea()
	binary.LittleEndian.PutUint16(data[base:], uint16(int16(s.Offset)))
	binary.LittleEndian.PutUint16(data[base+2:], uint16(int16(s.Length)))
	return nil
}

// firstEmptySlot returns the lowest hole index, or -1 when the directory has none.
func (hp *HeapPage) firstEmptySlot() int {
	for i := 0; i < hp.SlotCount(); i++ {
		if hp.readSlot(i).IsEmpty() {
			return i
		}
	}
	return -1
}

// ─────────────────────────────────────────────────────────────────────────────
// Invariants
// ─────────────────────────────────────────────────────────────────────────────

// Verify checks the layout invariants:
//   - the slot directory ends at or before FillOffset
//   - FreeSpace equals the gap between them
//   - every live slot addresses bytes inside [FillOffset, PageDataSize)
//   - live record lengths add up to PageDataSize - FillOffset (no gaps)
func (hp *HeapPage) Verify() error {
	slotCount := hp.SlotCount()
	fill := hp.FillOffset()
	dirEnd := slotByteOffset(slotCount)

	if fill > PageDataSize || dirEnd > fill {
		return errors.Wrapf(ErrCorruptPage, "directory end %d, fill offset %d, data size %d",
			dirEnd, fill, PageDataSize)
	}
	if free := hp.FreeSpace(); free != fill-dirEnd {
		return errors.Wrapf(ErrCorruptPage, "free space %d, expected %d", free, fill-dirEnd)
	}

	used := 0
	for i := 0; i < slotCount; i++ {
		s := hp.readSlot(i)
		if s.IsEmpty() {
			continue
		}
		if s.Length < 0 || s.Offset < fill || s.Offset+s.Length > PageDataSize {
			return errors.Wrapf(ErrCorruptPage, "slot %d (%d,%d) outside record region [%d,%d)",
				i, s.Offset, s.Length, fill, PageDataSize)
		}
		used += s.Length
	}
	if used != PageDataSize-fill {
		return errors.Wrapf(ErrCorruptPage, "live records use %d bytes, record region is %d", used, PageDataSize-fill)
	}
	return nil
}
