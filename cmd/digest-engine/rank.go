// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/ranking"
	"github.com/pdiddy/digest-engine/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Show the scored ranking for a category before selection",
	Long: `Rank scores a category's candidate window and prints every surviving
item with its lexical, model, recency, and boost components, followed by
the reason each dropped candidate was dropped. No focus profile or
diversity selection is applied.`,
	RunE: runRank,
}

type rankOutput struct {
	Category  string             `json:"category"`
	Threshold int                `json:"threshold"`
	Items     []types.RankedItem `json:"items"`
	Excluded  map[string]string  `json:"excluded"`
}

func runRank(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	if category == "" {
		return fmt.Errorf("category required: provide --category")
	}
	period, _ := cmd.Flags().GetString("period")

	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	prof, err := e.profiles.Lookup(category)
	if err != nil {
		return err
	}
	window, err := types.Period(period).WindowDays()
	if err != nil {
		return err
	}
	if prof.WindowDays > 0 {
		window = prof.WindowDays
	}

	ctx := cmd.Context()
	now := time.Now()
	candidates, err := e.store.LoadCandidates(ctx, category, window, now)
	if err != nil {
		return err
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	judgments, err := e.pipeline.Judgments.LoadJudgments(ctx, ids)
	if err != nil {
		return err
	}

	ranker := ranking.NewRanker(ranking.Options{Boost: e.profiles.Boost()})
	r, err := ranker.RankAt(candidates, prof, judgments, now)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rankOutput{Category: category, Threshold: r.Threshold, Items: r.Items, Excluded: r.Excluded})
	}

	formatRanking(r, len(candidates))
	return nil
}

func formatRanking(r ranking.Ranking, candidates int) {
	if len(r.Items) == 0 {
		fmt.Printf("No items cleared threshold %d (%d candidates).\n", r.Threshold, candidates)
	} else {
		fmt.Printf("%-4s  %-48s  %-18s  %-5s  %-5s  %-5s  %-5s  %s\n",
			"Rank", "Title", "Source", "Model", "Lex", "Rec", "Boost", "Final")
		fmt.Println(strings.Repeat("-", 110))
		for i, it := range r.Items {
			fmt.Printf("%-4d  %-48s  %-18s  %-5.2f  %-5.2f  %-5.2f  %-5.1f  %.3f\n",
				i+1, truncate(it.Title, 48), truncate(it.SourceName, 18),
				it.ModelScore, it.LexicalScore, it.RecencyScore, it.BoostMultiplier, it.FinalScore)
		}
		fmt.Printf("\n%d of %d candidates, threshold %d\n", len(r.Items), candidates, r.Threshold)
	}

	if len(r.Excluded) == 0 {
		return
	}
	ids := make([]string, 0, len(r.Excluded))
	for id := range r.Excluded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Println("\nExcluded:")
	for _, id := range ids {
		fmt.Printf("  %s: %s\n", id, r.Excluded[id])
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	rankCmd.Flags().String("category", "", "category to rank")
	rankCmd.Flags().String("period", "weekly", "window period when the profile sets none: daily, weekly, or monthly")
	rankCmd.Flags().Bool("json", false, "output the ranking as JSON")

	rootCmd.AddCommand(rankCmd)
}
