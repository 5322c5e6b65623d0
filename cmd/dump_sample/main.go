// dump_sample runs the seed and inspects every heap file it produced, writing
// all output to cmd/sample_run_output.txt. Run from repo root: go run ./cmd/dump_sample
package main

import (
	heapfile "SlotDB/storage_engine/access/heapfile_manager"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	dataDir    = "databases/demo/data"
	outputFile = "cmd/sample_run_output.txt"
)

func main() {
	outPath := outputFile
	// If run from cmd/dump_sample, output next to binary
	if _, err := os.Stat("cmd"); os.IsNotExist(err) {
		outPath = "sample_run_output.txt"
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// 1) Run seed: capture stdout/stderr to file
	fmt.Fprintln(f, "========== SEED (create tables, inserts, deletes) ==========")
	cmd := exec.Command("go", "run", "./cmd/seed")
	cmd.Stdout = f
	cmd.Stderr = f
	cmd.Dir = repoRoot()
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(f, "seed exited with error: %v\n", err)
	}

	// 2) Dump each heap file
	if err := dumpHeapFiles(f, filepath.Join(cmd.Dir, dataDir)); err != nil {
		fmt.Fprintf(f, "list heap files: %v\n", err)
	}

	fmt.Printf("Output written to %s\n", outPath)
}

// dumpHeapFiles writes the inspection of every .heap file in dir to w.
// A file that cannot be inspected is noted in the output; only a failed
// listing is returned.
func dumpHeapFiles(w io.Writer, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.heap"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Fprintf(w, "\n========== INSPECT %s ==========\n", filepath.Base(path))
		if err := heapfile.InspectHeapFileTo(w, path, true); err != nil {
			fmt.Fprintf(w, "inspect error: %v\n", err)
		}
	}
	return nil
}

func repoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
