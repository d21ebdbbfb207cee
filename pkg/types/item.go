// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the digest-engine pipeline:
// candidate items and their external model judgments, the per-pass ranked
// view of an item, category and focus profiles, and selection results.
package types

import (
	"strings"
	"time"
)

// CandidateItem is a content item (article, podcast episode, paper) pulled
// from an external feed. It is immutable for the duration of a ranking pass.
type CandidateItem struct {
	// ID is the stable item identifier assigned at ingestion.
	ID string `json:"id" yaml:"id"`

	// SourceName names the feed or publication the item came from.
	SourceName string `json:"source_name" yaml:"source_name"`

	// Title is the item headline.
	Title string `json:"title" yaml:"title"`

	// URL is the canonical link to the item.
	URL string `json:"url" yaml:"url"`

	// PublishedAt is the publication instant reported by the feed.
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// Summary is the feed-provided description, flattened to plain text.
	Summary string `json:"summary" yaml:"summary"`

	// Snippet is a short excerpt, when the feed provides one.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// FullText is the extracted body, when available.
	FullText string `json:"full_text,omitempty" yaml:"full_text,omitempty"`

	// Category is the primary category tag.
	Category string `json:"category" yaml:"category"`

	// Categories lists secondary category tags.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// InCategory reports whether the item is tagged with the given category,
// either as its primary category or as a secondary one.
func (c CandidateItem) InCategory(name string) bool {
	if c.Category == name {
		return true
	}
	for _, cat := range c.Categories {
		if cat == name {
			return true
		}
	}
	return false
}

// ModelJudgment is a precomputed relevance judgment produced by an external
// model for one item. Items the judge never saw have no judgment.
type ModelJudgment struct {
	// Relevance is the topical relevance on a 0-10 scale.
	Relevance float64 `json:"relevance" yaml:"relevance"`

	// Usefulness is the practical usefulness on a 0-10 scale.
	Usefulness float64 `json:"usefulness" yaml:"usefulness"`

	// Tags are free-form topic labels, including markers such as "off-topic".
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// HasTag reports whether the judgment carries tag, ignoring case.
func (j ModelJudgment) HasTag(tag string) bool {
	for _, t := range j.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// RankedItem is a CandidateItem with the scores computed for it in one
// ranking pass. It is derived data and is recomputed on every pass.
type RankedItem struct {
	CandidateItem `yaml:",inline"`

	// Judgment is the external model judgment, nil when the item was never judged.
	Judgment *ModelJudgment `json:"judgment,omitempty" yaml:"judgment,omitempty"`

	// LexicalScore is the normalized BM25 score in [0,1].
	LexicalScore float64 `json:"lexical_score" yaml:"lexical_score"`

	// ModelScore is the normalized judgment score in [0,1], or the lexical
	// score when no judgment exists.
	ModelScore float64 `json:"model_score" yaml:"model_score"`

	// RecencyScore is the half-life decay score in [0.2,1].
	RecencyScore float64 `json:"recency_score" yaml:"recency_score"`

	// BoostMultiplier is the domain-term multiplier applied to the weighted sum.
	BoostMultiplier float64 `json:"boost_multiplier" yaml:"boost_multiplier"`

	// FocusAlignment is the prompt alignment in [0,1]; zero when no focus re-rank ran.
	FocusAlignment float64 `json:"focus_alignment,omitempty" yaml:"focus_alignment,omitempty"`

	// FocusBoost is the re-rank multiplier; zero when no focus re-rank ran.
	FocusBoost float64 `json:"focus_boost,omitempty" yaml:"focus_boost,omitempty"`

	// FinalScore is the composite score. Boosts can push it above 1.
	FinalScore float64 `json:"final_score" yaml:"final_score"`

	// Reasoning is a human-readable trace of how FinalScore was produced.
	Reasoning string `json:"reasoning" yaml:"reasoning"`
}

// Judged reports whether the item has an external model judgment.
func (r RankedItem) Judged() bool {
	return r.Judgment != nil
}

// Tags returns the judgment tags, or nil when the item was never judged.
func (r RankedItem) Tags() []string {
	if r.Judgment == nil {
		return nil
	}
	return r.Judgment.Tags
}

// FocusProfile carries the topics a reader asked to emphasize or exclude.
// An empty FocusTopics list makes focus re-ranking a no-op.
type FocusProfile struct {
	FocusTopics   []string `json:"focus_topics,omitempty" yaml:"focus_topics,omitempty"`
	ExcludeTopics []string `json:"exclude_topics,omitempty" yaml:"exclude_topics,omitempty"`
}

// IsEmpty reports whether the profile carries neither focus nor exclusion topics.
func (f FocusProfile) IsEmpty() bool {
	return len(f.FocusTopics) == 0 && len(f.ExcludeTopics) == 0
}

// SelectionResult is the output of diversity selection. Reasons holds an
// entry for every item the selector examined, kept or not.
type SelectionResult struct {
	Items   []RankedItem      `json:"items" yaml:"items"`
	Reasons map[string]string `json:"reasons" yaml:"reasons"`

	// Relaxed is set when the minimum-fill pass admitted items over the
	// regular per-source cap.
	Relaxed bool `json:"relaxed" yaml:"relaxed"`
}
