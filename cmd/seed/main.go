// Seed program: creates home "databases/demo" with a few tables, fills them and
// deletes some rows so the pages carry holes.
// Run: go run ./cmd/seed
// Then inspect: databases/demo/data/*.heap (go run ./cmd/inspect_heap <file>).
package main

import (
	"SlotDB/config"
	"SlotDB/logger"
	storageengine "SlotDB/storage_engine"
	"SlotDB/types"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const homeDir = "databases/demo"

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

// run returns every failure instead of exiting so the engine is always closed
// and whatever was inserted gets flushed.
func run() (err error) {
	if err := os.RemoveAll(homeDir); err != nil {
		return errors.Wrap(err, "clean")
	}

	cfg, err := config.LoadConfig(homeDir, "")
	if err != nil {
		return errors.WithMessage(err, "config")
	}
	cfg.LogLevel = "info"
	if err := logger.Init(logger.Config{Level: cfg.LogLevel}); err != nil {
		return errors.WithMessage(err, "logger")
	}

	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		return errors.WithMessage(err, "storage engine")
	}
	defer func() {
		if cerr := se.Close(); cerr != nil && err == nil {
			err = errors.WithMessage(cerr, "close")
		}
	}()

	seed := func(table string, rows ...string) ([]types.RecordID, error) {
		hf, err := se.CreateTable(table)
		if err != nil {
			return nil, errors.WithMessagef(err, "create %s", table)
		}
		rids := make([]types.RecordID, 0, len(rows))
		for _, row := range rows {
			rid, err := hf.InsertRecord([]byte(row))
			if err != nil {
				return nil, errors.WithMessagef(err, "insert into %s", table)
			}
			rids = append(rids, rid)
		}
		return rids, nil
	}
	drop := func(table string, rid types.RecordID) error {
		hf, err := se.Table(table)
		if err != nil {
			return errors.WithMessagef(err, "open %s", table)
		}
		return errors.WithMessagef(hf.DeleteRecord(rid), "delete %s %s", table, rid)
	}

	fmt.Println("Seeding tables in", cfg.DataDir)

	// Table 1: students (id|name|age)
	students, err := seed("students", "S001|Alice|20", "S002|Bob|21", "S003|Carol|19", "S004|Dave|22")
	if err != nil {
		return err
	}
	if err := drop("students", students[1]); err != nil {
		return err
	}

	// Table 2: courses (code|title)
	if _, err := seed("courses", "CS101|Intro to CS", "CS102|Data Structures"); err != nil {
		return err
	}

	// Table 3: notes, large enough to spill over several pages
	var notes []string
	for i := 0; i < 60; i++ {
		notes = append(notes, fmt.Sprintf("N%03d|%s", i, strings.Repeat("lorem ipsum ", 20)))
	}
	noteIDs, err := seed("notes", notes...)
	if err != nil {
		return err
	}
	for i := 0; i < len(noteIDs); i += 7 {
		if err := drop("notes", noteIDs[i]); err != nil {
			return err
		}
	}

	for _, table := range []string{"students", "courses", "notes"} {
		hf, err := se.Table(table)
		if err != nil {
			return errors.WithMessagef(err, "open %s", table)
		}
		st, err := hf.Stats()
		if err != nil {
			return errors.WithMessagef(err, "stats %s", table)
		}
		fmt.Printf("  %-9s pages=%d records=%d holes=%d\n", table, st.Pages, st.Records, st.Holes)
	}

	fmt.Println("\nDone. Inspect:")
	fmt.Println("  - Heap files (table data):", cfg.DataDir+"/*.heap")
	return nil
}
