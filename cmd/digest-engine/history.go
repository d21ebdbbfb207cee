// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously built digests",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs(cmd.Context(), category, limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No digests recorded.")
		return nil
	}
	fmt.Printf("%-5s  %-16s  %-8s  %-20s  %-5s  %-9s  %s\n", "ID", "Category", "Period", "Generated", "Items", "Threshold", "Relaxed")
	fmt.Println(strings.Repeat("-", 84))
	for _, r := range runs {
		fmt.Printf("%-5d  %-16s  %-8s  %-20s  %-5d  %-9d  %v\n",
			r.ID, r.Category, r.Period, r.GeneratedAt.Format("2006-01-02 15:04"), len(r.ItemIDs), r.Threshold, r.Relaxed)
	}
	return nil
}

func init() {
	historyCmd.Flags().String("category", "", "only show this category")
	historyCmd.Flags().Int("limit", 20, "maximum runs to show (0 = all)")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}
