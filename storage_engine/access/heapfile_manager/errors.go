package heapfile

import "github.com/pkg/errors"

var (
	// heap page: capacity and iteration outcomes
	ErrInsufficientSpace = errors.New("not enough free space on page")
	ErrNoMoreRecords     = errors.New("no more records")
	// heap page: caller errors
	ErrInvalidSlot    = errors.New("slot index out of range")
	ErrSlotEmpty      = errors.New("slot is empty")
	ErrBufferTooSmall = errors.New("destination buffer too small for record")
	ErrStaleView      = errors.New("record view invalidated by a later page mutation")
	ErrRecordTooLarge = errors.New("record larger than a page can hold")
	// heap page: layout
	ErrCorruptPage = errors.New("heap page layout is corrupt")
	// heap file
	ErrHeapFileExists   = errors.New("heap file already exists")
	ErrHeapFileNotFound = errors.New("heap file not found")
	ErrBadTableName     = errors.New("table name must be a plain file name")
)
