// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [feeds-dir]",
	Short: "Load feed item batches into the store",
	Long: `Ingest reads YAML item batches from the feeds directory (default from
store.feeds_dir) and upserts their items and judgments into the SQLite
store. Files unchanged since the last run are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.Store.FeedsDir
	if len(args) == 1 {
		dir = args[0]
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := st.Ingest(cmd.Context(), dir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d batch file(s) failed ingest", summary.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
