package main

import (
	"SlotDB/config"
	"SlotDB/logger"
	storageengine "SlotDB/storage_engine"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	homeDir    string
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "slotdb",
	Short:         "SlotDB - heap files of slotted pages",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(homeDir, configPath)
		if err != nil {
			return errors.WithMessage(err, "load config")
		}
		return logger.Init(logger.Config{Level: cfg.LogLevel, LogFile: cfg.LogFile})
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "SlotDB home directory (default $SLOTDB_HOME or ~/.local/share/slotdb)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/config.yaml)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(inspectCmd)
}

// withEngine opens the storage engine, runs fn and always closes the engine,
// which flushes every dirty page.
func withEngine(fn func(se *storageengine.StorageEngine) error) error {
	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		return err
	}
	runErr := fn(se)
	closeErr := se.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}
