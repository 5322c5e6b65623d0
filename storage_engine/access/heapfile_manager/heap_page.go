package heapfile

import (
	page "SlotDB/storage_engine/page"
	"SlotDB/types"

	"github.com/pkg/errors"
)

/*
HeapPage is the slotted-page view over one buffer-pool frame.

The frame is owned by the buffer pool; a HeapPage never outlives the pin that
produced it and holds no state of its own beyond the frame pointer. Callers latch
the frame (pg.Lock / pg.RLock) before invoking anything here.

Every mutating method bumps the frame generation (page.Touch) and ends with
Verify, so a layout bug surfaces as ErrCorruptPage instead of silent overlap.
A method that fails with ErrInsufficientSpace, ErrInvalidSlot or ErrSlotEmpty
leaves the header untouched.
*/
type HeapPage struct {
	pg *page.Page
}

// NewHeapPage wraps a frame without checking its contents.
func NewHeapPage(pg *page.Page) *HeapPage {
	return &HeapPage{pg: pg}
}

// InitHeapPage formats pg as an empty heap page with the given id.
func InitHeapPage(pg *page.Page, pageID types.PageID) *HeapPage {
	hp := NewHeapPage(pg)
	hp.Init(pageID)
	return hp
}

// LoadHeapPage wraps a frame read back from disk and validates its layout.
func LoadHeapPage(pg *page.Page) (*HeapPage, error) {
	hp := NewHeapPage(pg)
	if err := hp.Verify(); err != nil {
		return nil, errors.WithMessagef(err, "LoadHeapPage: frame %d", pg.ID)
	}
	return hp, nil
}

// Frame returns the underlying buffer-pool frame.
func (hp *HeapPage) Frame() *page.Page {
	return hp.pg
}

// ─────────────────────────────────────────────────────────────────────────────
// Initialisation
// ─────────────────────────────────────────────────────────────────────────────

// Init resets the page to the empty state.
//
// After this call:
//   - NextPage == PrevPage == InvalidPageID
//   - FreeSpace  == PageDataSize
//   - SlotCount  == 0
//   - FillOffset == PageDataSize
//   - slot 0 is marked empty
//   - all other non-header bytes zeroed
func (hp *HeapPage) Init(pageID types.PageID) {
	// Checksum is rewritten on flush; everything else starts clean.
	clear(hp.pg.Data[page.PageTypeOffset:])
	hp.pg.Data[page.PageTypeOffset] = byte(types.PageTypeHeapData)
	hp.pg.PageType = types.PageTypeHeapData

	hp.setPageID(pageID)
	hp.SetNextPage(types.InvalidPageID)
	hp.SetPrevPage(types.InvalidPageID)
	hp.setFreeSpace(PageDataSize)
	hp.setSlotCount(0)
	hp.setFillOffset(PageDataSize)
	_ = hp.putSlot(0, emptySlot)

	hp.pg.Touch()
}

// ─────────────────────────────────────────────────────────────────────────────
// Record operations
// ─────────────────────────────────────────────────────────────────────────────

// InsertRecord copies data into the page and returns its RecordID.
//
// The first hole in the directory is reused; without one a new slot is
// appended and its SlotSize bytes are charged as well. Returns
// ErrInsufficientSpace when the page cannot take the record; the caller should
// try another page.
func (hp *HeapPage) InsertRecord(data []byte) (types.RecordID, error) {
	length := len(data)
	slotIdx := hp.firstEmptySlot()
	appended := slotIdx < 0
	need := length
	if appended {
		slotIdx = hp.SlotCount()
		need += SlotSize
	}

	free := hp.FreeSpace()
	if free < need {
		return types.RecordID{}, errors.Wrapf(ErrInsufficientSpace, "InsertRecord: need %d bytes, only %d free", need, free)
	}

	// Nothing is written until the new record region is known to clear the
	// directory, so a header that lies about FreeSpace leaves the page as it was.
	fill := hp.FillOffset()
	offset := fill - length
	if dirEnd := slotByteOffset(max(slotIdx+1, hp.SlotCount())); offset < dirEnd || fill > PageDataSize {
		return types.RecordID{}, errors.Wrapf(ErrCorruptPage, "InsertRecord: record bytes [%d,%d) overlap directory end %d",
			offset, fill, dirEnd)
	}

	if err := hp.putSlot(slotIdx, Slot{Offset: offset, Length: length}); err != nil {
		return types.RecordID{}, errors.WithMessage(err, "InsertRecord")
	}
	copy(hp.dataArea()[offset:fill], data)
	hp.setFillOffset(offset)
	if appended {
		hp.setSlotCount(slotIdx + 1)
	}
	hp.setFreeSpace(free - need)

	hp.pg.Touch()
	if err := hp.Verify(); err != nil {
		return types.RecordID{}, errors.WithMessage(err, "InsertRecord")
	}
	return types.RecordID{PageID: hp.PageID(), SlotNo: slotIdx}, nil
}

// DeleteRecord removes the record at rid and repacks the record region at once.
//
// Every record stored below the deleted one (lower offsets, i.e. inserted
// later) moves up by the deleted length, and its slot offset follows. The slot
// becomes a hole, unless it is the last directory entry, in which case the
// directory shrinks by one.
func (hp *HeapPage) DeleteRecord(rid types.RecordID) error {
	del, err := hp.Slot(rid.SlotNo)
	if err != nil {
		return errors.WithMessage(err, "DeleteRecord")
	}
	if del.IsEmpty() {
		return errors.Wrapf(ErrSlotEmpty, "DeleteRecord: slot %d", rid.SlotNo)
	}

	fill := hp.FillOffset()
	slotCount := hp.SlotCount()

	// [fill, del.Offset) slides up over the deleted bytes.
	span, err := hp.region(fill, del.Offset-fill+del.Length)
	if err != nil {
		return errors.WithMessage(err, "DeleteRecord")
	}
	copy(span[del.Length:], span[:del.Offset-fill])

	for i := 0; i < slotCount; i++ {
		if i == rid.SlotNo {
			continue
		}
		s := hp.readSlot(i)
		if s.IsEmpty() {
			continue
		}
		// A zero-length record sharing the deleted offset was inserted after it.
		if s.Offset < del.Offset || (s.Offset == del.Offset && s.Length == 0) {
			s.Offset += del.Length
			if err := hp.putSlot(i, s); err != nil {
				return errors.WithMessage(err, "DeleteRecord")
			}
		}
	}

	if err := hp.putSlot(rid.SlotNo, emptySlot); err != nil {
		return errors.WithMessage(err, "DeleteRecord")
	}
	hp.setFillOffset(fill + del.Length)

	free := hp.FreeSpace() + del.Length
	if rid.SlotNo == slotCount-1 {
		hp.setSlotCount(slotCount - 1)
		free += SlotSize
	}
	hp.setFreeSpace(free)

	hp.pg.Touch()
	return errors.WithMessage(hp.Verify(), "DeleteRecord")
}

// GetRecordCopy copies the record at rid into out and returns its length.
func (hp *HeapPage) GetRecordCopy(rid types.RecordID, out []byte) (int, error) {
	rec, err := hp.record(rid)
	if err != nil {
		return 0, errors.WithMessage(err, "GetRecordCopy")
	}
	if len(out) < len(rec) {
		return 0, errors.Wrapf(ErrBufferTooSmall, "GetRecordCopy: record is %d bytes, buffer %d", len(rec), len(out))
	}
	return copy(out, rec), nil
}

// GetRecord returns a freshly allocated copy of the record at rid.
func (hp *HeapPage) GetRecord(rid types.RecordID) ([]byte, error) {
	rec, err := hp.record(rid)
	if err != nil {
		return nil, errors.WithMessage(err, "GetRecord")
	}
	out := make([]byte, len(rec))
	copy(out, rec)
	return out, nil
}

// GetRecordView returns a borrowed view of the record at rid. The view stops
// resolving as soon as the page is mutated.
func (hp *HeapPage) GetRecordView(rid types.RecordID) (RecordView, error) {
	s, err := hp.liveSlot(rid)
	if err != nil {
		return RecordView{}, errors.WithMessage(err, "GetRecordView")
	}
	if _, err := hp.region(s.Offset, s.Length); err != nil {
		return RecordView{}, errors.WithMessage(err, "GetRecordView")
	}
	return RecordView{
		pg:     hp.pg,
		gen:    hp.pg.Generation(),
		offset: HeapHeaderSize + s.Offset,
		length: s.Length,
	}, nil
}

func (hp *HeapPage) liveSlot(rid types.RecordID) (Slot, error) {
	s, err := hp.Slot(rid.SlotNo)
	if err != nil {
		return Slot{}, err
	}
	if s.IsEmpty() {
		return Slot{}, errors.Wrapf(ErrSlotEmpty, "slot %d", rid.SlotNo)
	}
	return s, nil
}

func (hp *HeapPage) record(rid types.RecordID) ([]byte, error) {
	s, err := hp.liveSlot(rid)
	if err != nil {
		return nil, err
	}
	return hp.region(s.Offset, s.Length)
}

// ─────────────────────────────────────────────────────────────────────────────
// Iteration
// ─────────────────────────────────────────────────────────────────────────────

// FirstRecord returns the lowest-indexed live record, or ErrNoMoreRecords.
func (hp *HeapPage) FirstRecord() (types.RecordID, error) {
	return hp.scanFrom(0)
}

// NextRecord returns the next live record after cur in slot order.
// Returns ErrInvalidSlot when cur is not inside the directory and
// ErrNoMoreRecords after the last record.
func (hp *HeapPage) NextRecord(cur types.RecordID) (types.RecordID, error) {
	if cur.SlotNo < 0 || cur.SlotNo >= hp.SlotCount() {
		return types.RecordID{}, errors.Wrapf(ErrInvalidSlot, "NextRecord: slot %d (count=%d)", cur.SlotNo, hp.SlotCount())
	}
	return hp.scanFrom(cur.SlotNo + 1)
}

func (hp *HeapPage) scanFrom(start int) (types.RecordID, error) {
	for i := start; i < hp.SlotCount(); i++ {
		if !hp.readSlot(i).IsEmpty() {
			return types.RecordID{PageID: hp.PageID(), SlotNo: i}, nil
		}
	}
	return types.RecordID{}, ErrNoMoreRecords
}

// ─────────────────────────────────────────────────────────────────────────────
// Space accounting
// ─────────────────────────────────────────────────────────────────────────────

// AvailableSpace returns how many record bytes the next insert can take.
// Without a hole to reuse, the cost of a new slot entry is subtracted; the
// result is negative when not even that entry fits.
func (hp *HeapPage) AvailableSpace() int {
	if hp.firstEmptySlot() >= 0 {
		return hp.FreeSpace()
	}
	return hp.FreeSpace() - SlotSize
}

func (hp *HeapPage) IsEmpty() bool {
	return hp.GetNumOfRecords() == 0
}

// GetNumOfRecords counts live (non-hole) slots.
func (hp *HeapPage) GetNumOfRecords() int {
	n := 0
	for i := 0; i < hp.SlotCount(); i++ {
		if !hp.readSlot(i).IsEmpty() {
			n++
		}
	}
	return n
}

// CompactSlotDir drops every hole from the slot directory and returns how many
// were removed. Live slots shift down, so RecordIDs issued earlier for this
// page must not be used afterwards.
func (hp *HeapPage) CompactSlotDir() (int, error) {
	slotCount := hp.SlotCount()
	holes := 0
	for i := 0; i < slotCount; i++ {
		s := hp.readSlot(i)
		if s.IsEmpty() {
			holes++
			continue
		}
		if holes > 0 {
			if err := hp.putSlot(i-holes, s); err != nil {
				return 0, errors.WithMessage(err, "CompactSlotDir")
			}
		}
	}
	if holes == 0 {
		return 0, nil
	}

	hp.setSlotCount(slotCount - holes)
	hp.setFreeSpace(hp.FreeSpace() + holes*SlotSize)

	hp.pg.Touch()
	if err := hp.Verify(); err != nil {
		return 0, errors.WithMessage(err, "CompactSlotDir")
	}
	return holes, nil
}
