// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"sort"
	"strings"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// BoostBand maps a minimum number of matched domain terms to a multiplier.
type BoostBand struct {
	MinMatches int     `json:"min_matches" yaml:"min_matches"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// BoostTable is the data that drives domain-term boosting. Bands compound
// with the number of distinct matched terms; a priority term match uses
// PriorityMultiplier instead of stacking.
type BoostTable struct {
	Bands              []BoostBand `json:"bands" yaml:"bands"`
	PriorityMultiplier float64     `json:"priority_multiplier" yaml:"priority_multiplier"`
}

// DefaultBoostTable returns 1 term ×1.5, 2 terms ×2.0, 3 or more ×3.0, and
// ×3.0 for any priority term.
func DefaultBoostTable() BoostTable {
	return BoostTable{
		Bands: []BoostBand{
			{MinMatches: 1, Multiplier: 1.5},
			{MinMatches: 2, Multiplier: 2.0},
			{MinMatches: 3, Multiplier: 3.0},
		},
		PriorityMultiplier: 3.0,
	}
}

// Boost is the outcome of matching one item against the boost terms.
type Boost struct {
	Multiplier float64
	Matched    []string
	Priority   bool
}

// Apply returns the multiplier for text. A priority match wins outright
// with the table's highest multiplier. Otherwise the band with the largest
// MinMatches not exceeding the match count applies. No match is ×1.
func (bt BoostTable) Apply(text string, terms, priorityTerms []string) Boost {
	lower := strings.ToLower(text)

	if matched := matchTerms(lower, priorityTerms); len(matched) > 0 {
		return Boost{Multiplier: bt.maxMultiplier(), Matched: matched, Priority: true}
	}

	matched := matchTerms(lower, terms)
	b := Boost{Multiplier: 1, Matched: matched}
	if len(matched) == 0 {
		return b
	}

	bands := append([]BoostBand(nil), bt.Bands...)
	sort.Slice(bands, func(i, j int) bool { return bands[i].MinMatches < bands[j].MinMatches })
	for _, band := range bands {
		if len(matched) >= band.MinMatches && band.Multiplier > 0 {
			b.Multiplier = band.Multiplier
		}
	}
	return b
}

func (bt BoostTable) maxMultiplier() float64 {
	m := bt.PriorityMultiplier
	for _, band := range bt.Bands {
		if band.Multiplier > m {
			m = band.Multiplier
		}
	}
	if m < 1 {
		m = 1
	}
	return m
}

// matchTerms returns the distinct terms found in lowerText.
func matchTerms(lowerText string, terms []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range terms {
		lt := strings.ToLower(strings.TrimSpace(t))
		if lt == "" || seen[lt] {
			continue
		}
		seen[lt] = true
		if strings.Contains(lowerText, lt) {
			out = append(out, lt)
		}
	}
	return out
}

func boostText(it types.CandidateItem) string {
	return it.Title + " " + it.Summary + " " + it.Snippet
}
