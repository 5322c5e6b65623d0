package main

import (
	storageengine "SlotDB/storage_engine"
	"SlotDB/types"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var insertCmd = &cobra.Command{
	Use:   "insert <table> <value>...",
	Short: "Insert each value as one record",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(se *storageengine.StorageEngine) error {
			hf, err := se.Table(args[0])
			if err != nil {
				return err
			}
			for _, v := range args[1:] {
				rid, err := hf.InsertRecord([]byte(v))
				if err != nil {
					return errors.WithMessagef(err, "insert %q", v)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rid, v)
			}
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <table> <page> <slot>",
	Short: "Print one record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rid, err := parseRecordID(args[1], args[2])
		if err != nil {
			return err
		}
		return withEngine(func(se *storageengine.StorageEngine) error {
			hf, err := se.Table(args[0])
			if err != nil {
				return err
			}
			data, err := hf.GetRecord(rid)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rid, data)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <table> <page> <slot>",
	Short: "Delete one record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rid, err := parseRecordID(args[1], args[2])
		if err != nil {
			return err
		}
		return withEngine(func(se *storageengine.StorageEngine) error {
			hf, err := se.Table(args[0])
			if err != nil {
				return err
			}
			if err := hf.DeleteRecord(rid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", rid)
			return nil
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <table>",
	Short: "Print every record in page and slot order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(se *storageengine.StorageEngine) error {
			hf, err := se.Table(args[0])
			if err != nil {
				return err
			}
			n := 0
			err = hf.Scan().ForEach(func(rid types.RecordID, data []byte) error {
				n++
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rid, data)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(%d records)\n", n)
			return nil
		})
	},
}

func parseRecordID(pageArg, slotArg string) (types.RecordID, error) {
	pid, err := strconv.ParseInt(pageArg, 10, 32)
	if err != nil {
		return types.RecordID{}, errors.Wrapf(err, "page %q", pageArg)
	}
	slot, err := strconv.Atoi(slotArg)
	if err != nil {
		return types.RecordID{}, errors.Wrapf(err, "slot %q", slotArg)
	}
	return types.RecordID{PageID: types.PageID(pid), SlotNo: slot}, nil
}
