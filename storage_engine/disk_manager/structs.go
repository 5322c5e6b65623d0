package diskmanager

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrChecksumMismatch = errors.New("page checksum does not match")
	ErrFileNotFound     = errors.New("file not registered with disk manager")
	ErrFileClosed       = errors.New("file is closed")
	ErrPageOutOfRange   = errors.New("page beyond end of file")
)

// ############################################# FILE DESCRIPTOR ###########################################

// FileDescriptor represents an open file managed by the disk manager
type FileDescriptor struct {
	FileID     uint32
	FilePath   string
	File       *os.File
	NextPageID int64 // Next available local page number within this file
	mu         sync.RWMutex
}

// ############################################# DISK MANAGER #############################################

// DiskManager manages all disk I/O operations and file handles
type DiskManager struct {
	files           map[uint32]*FileDescriptor // fileID -> file descriptor
	nextFileID      uint32
	verifyChecksums bool
	log             *logrus.Entry
	mu              sync.RWMutex
}
