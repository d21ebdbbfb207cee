// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/digest-engine/internal/digest"
	"github.com/pdiddy/digest-engine/pkg/types"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Build the digest for one category or all of them",
	Long: `Digest ranks a category's candidate window, applies the focus profile
(--focus boosts matching items, --exclude removes them), and selects a
deduplicated, source-diverse shortlist.

With --all every profiled category is built concurrently. Use --out to save
each digest as YAML, --explain to print why every candidate was kept or
dropped.`,
	RunE: runDigest,
}

func runDigest(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	all, _ := cmd.Flags().GetBool("all")
	if category == "" && !all {
		return fmt.Errorf("category required: provide --category or --all")
	}
	if category != "" && all {
		return fmt.Errorf("--category and --all are mutually exclusive")
	}

	noRecord, _ := cmd.Flags().GetBool("no-record")
	e, err := openEnv(!noRecord)
	if err != nil {
		return err
	}
	defer e.Close()

	req := requestFromFlags(cmd)
	categories := []string{category}
	if all {
		categories = e.profiles.Names()
	}

	results := e.pipeline.RunAll(cmd.Context(), categories, req)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", r.Category, r.Err)
			failed++
			continue
		}
		if err := emitDigest(cmd, r.Digest); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d categories failed", failed, len(results))
	}
	return nil
}

func requestFromFlags(cmd *cobra.Command) digest.Request {
	period, _ := cmd.Flags().GetString("period")
	focus, _ := cmd.Flags().GetStringSlice("focus")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	perSourceCap, _ := cmd.Flags().GetInt("per-source-cap")
	maxItems, _ := cmd.Flags().GetInt("max")

	return digest.Request{
		Period:       types.Period(period),
		Focus:        types.FocusProfile{FocusTopics: focus, ExcludeTopics: exclude},
		PerSourceCap: perSourceCap,
		MaxOverride:  maxItems,
	}
}

func emitDigest(cmd *cobra.Command, d types.Digest) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	explain, _ := cmd.Flags().GetBool("explain")
	out, _ := cmd.Flags().GetBool("out")

	if jsonOutput {
		if err := digest.FormatJSON(d, os.Stdout); err != nil {
			return err
		}
	} else {
		digest.FormatTable(d, os.Stdout)
		if explain {
			fmt.Println()
			digest.FormatReasons(d, os.Stdout)
		}
		fmt.Println()
	}

	if out {
		path := filepath.Join(viper.GetString("digests_dir"), digest.Filename(d))
		if err := digest.WriteFile(path, d); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}
	return nil
}

func init() {
	digestCmd.Flags().String("category", "", "category to build")
	digestCmd.Flags().Bool("all", false, "build every profiled category")
	digestCmd.Flags().String("period", "weekly", "digest period: daily, weekly, or monthly")
	digestCmd.Flags().StringSlice("focus", nil, "focus topics to boost (comma-separated)")
	digestCmd.Flags().StringSlice("exclude", nil, "topics to exclude (comma-separated)")
	digestCmd.Flags().Int("per-source-cap", 0, "maximum items per source (0 = configured value)")
	digestCmd.Flags().Int("max", 0, "target digest size (0 = profile max_items)")
	digestCmd.Flags().Bool("json", false, "output digests as JSON")
	digestCmd.Flags().Bool("explain", false, "print the reason for every candidate")
	digestCmd.Flags().Bool("out", false, "save each digest as YAML under digests_dir")
	digestCmd.Flags().Bool("no-record", false, "do not add the digest to run history")

	rootCmd.AddCommand(digestCmd)
}
