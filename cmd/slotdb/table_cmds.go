package main

import (
	storageengine "SlotDB/storage_engine"
	"fmt"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <table>",
	Short: "Create an empty table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(se *storageengine.StorageEngine) error {
			if _, err := se.CreateTable(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created table %s\n", args[0])
			return nil
		})
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the data directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(se *storageengine.StorageEngine) error {
			tables, err := se.HeapManager.ListTables()
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		})
	},
}
