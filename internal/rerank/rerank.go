// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rerank applies a reader's focus profile to a ranked list. Focus
// topics re-weight scores multiplicatively so prompt alignment dominates
// once present; exclude topics remove items outright.
package rerank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// Band maps alignment strictly above Above to Multiplier.
type Band struct {
	Above      float64 `json:"above" yaml:"above"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// Bands is a monotonic alignment-to-boost table. Bands are checked from the
// highest threshold down; alignment clearing none of them gets Floor.
type Bands struct {
	Steps []Band  `json:"steps" yaml:"steps"`
	Floor float64 `json:"floor" yaml:"floor"`
}

// AggressiveBands makes alignment the dominant signal: strong ×5, moderate
// ×3, weak ×2, and ×0.3 for no alignment.
func AggressiveBands() Bands {
	return Bands{
		Steps: []Band{{Above: 0.5, Multiplier: 5.0}, {Above: 0.3, Multiplier: 3.0}, {Above: 0.1, Multiplier: 2.0}},
		Floor: 0.3,
	}
}

// SoftBands nudges rather than reorders.
func SoftBands() Bands {
	return Bands{
		Steps: []Band{{Above: 0.5, Multiplier: 1.5}, {Above: 0.3, Multiplier: 1.25}, {Above: 0.1, Multiplier: 1.1}},
		Floor: 0.8,
	}
}

// BandsByName resolves a preset name. Empty selects the aggressive preset.
func BandsByName(name string) (Bands, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "aggressive":
		return AggressiveBands(), nil
	case "soft":
		return SoftBands(), nil
	default:
		return Bands{}, &types.ConfigError{Reason: fmt.Sprintf("unknown rerank bands %q: use aggressive or soft", name)}
	}
}

// Boost returns the multiplier for alignment.
func (b Bands) Boost(alignment float64) float64 {
	steps := append([]Band(nil), b.Steps...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Above > steps[j].Above })
	for _, s := range steps {
		if alignment > s.Above {
			return s.Multiplier
		}
	}
	return b.Floor
}

// Reranker re-weights ranked items against a focus profile.
type Reranker struct {
	Bands Bands
}

// New returns a Reranker using bands.
func New(bands Bands) *Reranker {
	return &Reranker{Bands: bands}
}

// Alignment scores how well it matches the focus topics: half the share of
// its judgment tags overlapping a topic, half the share of topics found in
// its text.
func Alignment(it types.RankedItem, focusTopics []string) float64 {
	topics := NormalizeTopics(focusTopics)
	if len(topics) == 0 {
		return 0
	}

	var tagMatch float64
	if tags := NormalizeTopics(it.Tags()); len(tags) > 0 {
		hits := 0
		for _, tag := range tags {
			for _, topic := range topics {
				if strings.Contains(tag, topic) || strings.Contains(topic, tag) {
					hits++
					break
				}
			}
		}
		tagMatch = float64(hits) / float64(len(tags))
	}

	text := normalize(it.Title + " " + it.Summary + " " + it.FullText)
	hits := 0
	for _, topic := range topics {
		if strings.Contains(text, topic) {
			hits++
		}
	}
	termMatch := float64(hits) / float64(len(topics))

	return 0.5*tagMatch + 0.5*termMatch
}

// Rerank multiplies each FinalScore by the band boost for its alignment and
// re-sorts descending, keeping prior order on ties. With no focus topics
// the input is returned unchanged.
func (r *Reranker) Rerank(items []types.RankedItem, focus types.FocusProfile) []types.RankedItem {
	if len(NormalizeTopics(focus.FocusTopics)) == 0 {
		return items
	}

	out := make([]types.RankedItem, len(items))
	for i, it := range items {
		alignment := Alignment(it, focus.FocusTopics)
		boost := r.Bands.Boost(alignment)
		it.FocusAlignment = alignment
		it.FocusBoost = boost
		it.FinalScore *= boost
		it.Reasoning = strings.TrimSpace(fmt.Sprintf("%s focus=%.2f x%.2f -> %.3f", it.Reasoning, alignment, boost, it.FinalScore))
		out[i] = it
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

// FilterByExclusions removes every item whose text or judgment tags contain
// any exclude topic. Exclusion is absolute regardless of score.
func FilterByExclusions(items []types.RankedItem, focus types.FocusProfile) []types.RankedItem {
	excludes := NormalizeTopics(focus.ExcludeTopics)
	if len(excludes) == 0 {
		return items
	}

	out := make([]types.RankedItem, 0, len(items))
	for _, it := range items {
		if _, hit := ExcludedBy(it, excludes); !hit {
			out = append(out, it)
		}
	}
	return out
}

// ExcludedBy returns the first normalized exclude topic matching it.
// excludes must already be normalized.
func ExcludedBy(it types.RankedItem, excludes []string) (string, bool) {
	text := normalize(strings.Join([]string{it.Title, it.Summary, it.Snippet, it.FullText}, " "))
	tags := NormalizeTopics(it.Tags())
	for _, ex := range excludes {
		if strings.Contains(text, ex) {
			return ex, true
		}
		for _, tag := range tags {
			if strings.Contains(tag, ex) {
				return ex, true
			}
		}
	}
	return "", false
}

var separators = strings.NewReplacer("-", " ", "_", " ", "/", " ")

// normalize lowercases s, turns separators into spaces, and collapses
// whitespace so "Code-Search" and "code search" compare equal.
func normalize(s string) string {
	return strings.Join(strings.Fields(separators.Replace(strings.ToLower(s))), " ")
}

// NormalizeTopics normalizes each entry and drops blanks.
func NormalizeTopics(in []string) []string {
	var out []string
	for _, s := range in {
		if n := normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
