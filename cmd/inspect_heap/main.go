// Inspect a heap file (.heap): page headers, slot directories and free space.
// Usage: go run ./cmd/inspect_heap <path-to-.heap>
// Example: go run ./cmd/inspect_heap databases/demo/data/students.heap
package main

import (
	"fmt"
	"os"

	heapfile "SlotDB/storage_engine/access/heapfile_manager"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <table.heap>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s databases/demo/data/students.heap\n", os.Args[0])
		os.Exit(1)
	}
	path := os.Args[1]
	if err := heapfile.InspectHeapFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
