package main

import (
	heapfile "SlotDB/storage_engine/access/heapfile_manager"
	storageengine "SlotDB/storage_engine"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact <table>",
	Short: "Remove slot directory holes; previously printed record ids become invalid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(se *storageengine.StorageEngine) error {
			hf, err := se.Table(args[0])
			if err != nil {
				return err
			}
			removed, err := hf.CompactPages()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d empty slots (%s reclaimed)\n",
				removed, humanize.IBytes(uint64(removed*heapfile.SlotSize)))
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <table>",
	Short: "Summarise space usage of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(se *storageengine.StorageEngine) error {
			hf, err := se.Table(args[0])
			if err != nil {
				return err
			}
			st, err := hf.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "table:   %s\n", args[0])
			fmt.Fprintf(out, "pages:   %d\n", st.Pages)
			fmt.Fprintf(out, "records: %s\n", humanize.Comma(int64(st.Records)))
			fmt.Fprintf(out, "holes:   %d\n", st.Holes)
			fmt.Fprintf(out, "used:    %s\n", humanize.IBytes(uint64(st.UsedBytes)))
			fmt.Fprintf(out, "free:    %s\n", humanize.IBytes(uint64(st.FreeBytes)))

			bs := se.BufferPool.GetStats()
			fmt.Fprintf(out, "buffer:  %d/%d frames, hit rate %.2f\n", bs.TotalPages, bs.Capacity, bs.HitRate)
			return nil
		})
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <table>",
	Short: "Dump every page header and slot directory of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(cfg.DataDir, args[0]+".heap")
		return heapfile.InspectHeapFileTo(cmd.OutOrStdout(), path, cfg.VerifyChecksums)
	},
}
