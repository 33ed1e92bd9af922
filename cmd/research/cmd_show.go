package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwrenn/research-pipeline/internal/config"
	"github.com/mwrenn/research-pipeline/internal/storage/sqlite"
)

var showFlags struct {
	configPath string
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run's trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFlags.configPath, "config", "", "Path to a config file")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(showFlags.configPath)
	if err != nil {
		return err
	}
	if cfg.Storage.Type != "sqlite" {
		return fmt.Errorf("show requires sqlite storage, configured type is %q", cfg.Storage.Type)
	}

	store, err := sqlite.New(cfg.Storage.SQLite.Path)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printRun(cmd, run)
	return nil
}
