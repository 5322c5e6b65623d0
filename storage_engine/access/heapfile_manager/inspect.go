// Heap file inspection for debugging.
// Use InspectHeapFile(path) to print a human-readable dump of a .heap file.

package heapfile

import (
	diskmanager "SlotDB/storage_engine/disk_manager"
	"SlotDB/types"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// InspectHeapFile opens a heap file and prints its pages to stdout.
func InspectHeapFile(heapPath string) error {
	return InspectHeapFileTo(os.Stdout, heapPath, true)
}

// InspectHeapFileTo writes a human-readable dump of the heap file to w:
// every page's header, slot directory and space usage, in file order.
// The file must not be open in a running engine with unflushed pages.
func InspectHeapFileTo(w io.Writer, heapPath string, verifyChecksums bool) error {
	info, err := os.Stat(heapPath)
	if err != nil {
		return errors.Wrap(err, "inspect")
	}

	dm := diskmanager.NewDiskManager(verifyChecksums)
	fileID, err := dm.OpenFile(heapPath)
	if err != nil {
		return err
	}
	defer dm.CloseFile(fileID)

	numPages, err := dm.NumPages(fileID)
	if err != nil {
		return err
	}

	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	p("Heap file: %s (%s, %d pages)\n", heapPath, humanize.IBytes(uint64(info.Size())), numPages)

	var totalRecords, totalFree int
	for local := int64(0); local < numPages; local++ {
		pg, err := dm.ReadPage(diskmanager.GlobalPageID(fileID, local))
		if err != nil {
			p("\n  [page %d] read error: %v\n", local, err)
			continue
		}
		if pg.PageType != types.PageTypeHeapData {
			p("\n  [page %d] type=%s (skipped)\n", local, pg.PageType)
			continue
		}

		hp, err := LoadHeapPage(pg)
		if err != nil {
			p("\n  [page %d] %v\n", local, err)
			continue
		}

		records := hp.GetNumOfRecords()
		totalRecords += records
		totalFree += hp.FreeSpace()

		p("\n  [page %d] id=%d prev=%s next=%s\n", local, hp.PageID(), linkString(hp.GetPrevPage()), linkString(hp.GetNextPage()))
		p("    slots=%d records=%d fill=%d free=%s available=%d\n",
			hp.SlotCount(), records, hp.FillOffset(), humanize.IBytes(uint64(hp.FreeSpace())), hp.AvailableSpace())

		for i := 0; i < hp.SlotCount(); i++ {
			s, _ := hp.Slot(i)
			if s.IsEmpty() {
				p("    slot %3d: <empty>\n", i)
				continue
			}
			p("    slot %3d: offset=%d length=%d\n", i, s.Offset, s.Length)
		}
	}

	p("\n  total: %d records, %s free\n", totalRecords, humanize.IBytes(uint64(totalFree)))
	return nil
}

func linkString(id types.PageID) string {
	if !id.Valid() {
		return "-"
	}
	return fmt.Sprintf("%d", id)
}
