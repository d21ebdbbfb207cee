// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/store"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect category profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured categories, their settings, and stored item counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		set, err := loadProfiles(cfg)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		stored, err := st.Categories(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%-16s  %-4s  %-6s  %-6s  %-6s  %-6s  %s\n", "Category", "Max", "MinRel", "Half", "Window", "Stored", "Query terms")
		fmt.Println(strings.Repeat("-", 98))
		for _, name := range set.Names() {
			n := stored[name]
			delete(stored, name)
			p, err := set.Lookup(name)
			if err != nil {
				fmt.Printf("%-16s  invalid: %v\n", name, err)
				continue
			}
			window := "period"
			if p.WindowDays > 0 {
				window = fmt.Sprintf("%dd", p.WindowDays)
			}
			fmt.Printf("%-16s  %-4d  %-6d  %-6s  %-6s  %-6d  %s\n",
				name, p.MaxItems, p.MinRelevance, fmt.Sprintf("%gd", p.HalfLifeDays), window, n, strings.Join(p.QueryTerms, ", "))
		}

		if len(stored) > 0 {
			orphans := make([]string, 0, len(stored))
			for name, n := range stored {
				orphans = append(orphans, fmt.Sprintf("%s (%d)", name, n))
			}
			sort.Strings(orphans)
			fmt.Printf("\nStored categories with no profile: %s\n", strings.Join(orphans, ", "))
		}
		return nil
	},
}

var profilesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every category profile and report problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		set, err := loadProfiles(cfg)
		if err != nil {
			return err
		}

		errs := set.Validate()
		for _, e := range errs {
			fmt.Printf("invalid: %v\n", e)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d of %d profile(s) invalid", len(errs), len(set.Names()))
		}
		fmt.Printf("%d profile(s) valid\n", len(set.Names()))
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesValidateCmd)
	rootCmd.AddCommand(profilesCmd)
}
