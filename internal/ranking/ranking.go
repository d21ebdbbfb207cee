// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ranking turns a time-windowed candidate set into an ordered,
// filtered list of RankedItems for one category. It combines BM25 lexical
// relevance, external model judgments, recency decay, and domain-term
// boosts, then applies the off-topic hard filter and adaptive threshold
// relaxation.
//
// Everything here is pure computation over in-memory slices. Each call
// builds its own index and score maps, so concurrent calls for different
// categories need no locking.
package ranking

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/digest-engine/internal/lexical"
	"github.com/pdiddy/digest-engine/pkg/types"
)

const (
	// DefaultThresholdFloor is the lowest relevance threshold relaxation may reach.
	DefaultThresholdFloor = 3

	// DefaultUnjudgedBar is the fixed bar for items without a judgment, on
	// the 0-10 scale applied to their lexical fallback score.
	DefaultUnjudgedBar = 3.0

	relevanceWeight  = 0.7
	usefulnessWeight = 0.3
)

// DefaultOffTopicTags are judgment tags that remove an item unconditionally.
var DefaultOffTopicTags = []string{"off-topic"}

// Options tune a Ranker. Zero values select the defaults.
type Options struct {
	Boost          BoostTable
	ThresholdFloor int
	UnjudgedBar    float64
	OffTopicTags   []string

	// Now returns the reference time for recency. Defaults to time.Now.
	Now func() time.Time
}

// Ranker ranks candidate sets. It holds only configuration.
type Ranker struct {
	opts Options
}

// NewRanker returns a Ranker with defaults filled in.
func NewRanker(opts Options) *Ranker {
	if len(opts.Boost.Bands) == 0 && opts.Boost.PriorityMultiplier == 0 {
		opts.Boost = DefaultBoostTable()
	}
	if opts.ThresholdFloor <= 0 {
		opts.ThresholdFloor = DefaultThresholdFloor
	}
	if opts.UnjudgedBar <= 0 {
		opts.UnjudgedBar = DefaultUnjudgedBar
	}
	if opts.OffTopicTags == nil {
		opts.OffTopicTags = DefaultOffTopicTags
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ranker{opts: opts}
}

// ValidateProfile checks profile's own fields and that its query terms
// survive tokenization, so the lexical signal can fire at all.
func ValidateProfile(profile types.CategoryProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if len(lexical.QueryTokens(profile.QueryTerms)) == 0 {
		return &types.ConfigError{
			Category: profile.Name,
			Reason:   fmt.Sprintf("query terms %q yield no searchable tokens", profile.QueryTerms),
		}
	}
	return nil
}

// Ranking is the output of one ranking pass.
type Ranking struct {
	// Items are sorted by FinalScore descending and truncated to MaxItems.
	Items []types.RankedItem

	// Threshold is the relevance threshold the surviving set was filtered at.
	Threshold int

	// Excluded explains why each dropped candidate was dropped.
	Excluded map[string]string
}

// Rank scores candidates for profile. judgments may be nil or miss entries;
// unjudged items fall back to their lexical score. An invalid profile fails
// before any scoring. An empty candidate set yields an empty Ranking.
func (r *Ranker) Rank(candidates []types.CandidateItem, profile types.CategoryProfile, judgments map[string]types.ModelJudgment) (Ranking, error) {
	return r.RankAt(candidates, profile, judgments, r.opts.Now())
}

// RankAt is Rank with an explicit reference time for recency.
func (r *Ranker) RankAt(candidates []types.CandidateItem, profile types.CategoryProfile, judgments map[string]types.ModelJudgment, now time.Time) (Ranking, error) {
	if err := ValidateProfile(profile); err != nil {
		return Ranking{}, err
	}

	out := Ranking{Threshold: profile.MinRelevance, Excluded: make(map[string]string)}
	if len(candidates) == 0 {
		return out, nil
	}

	survivors := make([]types.CandidateItem, 0, len(candidates))
	for _, c := range candidates {
		if reason := rejectURL(c.URL); reason != "" {
			out.Excluded[c.ID] = reason
			continue
		}
		survivors = append(survivors, c)
	}
	if len(survivors) == 0 {
		return out, nil
	}

	lex := lexical.Normalize(lexical.Build(survivors).Score(profile.QueryTerms))

	ranked := make([]types.RankedItem, 0, len(survivors))
	for _, c := range survivors {
		ranked = append(ranked, r.score(c, profile, judgments, lex[c.ID], now))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	onTopic := make([]types.RankedItem, 0, len(ranked))
	for _, it := range ranked {
		if tag, ok := r.offTopic(it); ok {
			out.Excluded[it.ID] = fmt.Sprintf("judged %q", tag)
			continue
		}
		onTopic = append(onTopic, it)
	}

	threshold := profile.MinRelevance
	kept := r.filterAt(onTopic, threshold)
	for len(kept) < profile.MaxItems && threshold > r.opts.ThresholdFloor {
		threshold--
		kept = r.filterAt(onTopic, threshold)
	}
	out.Threshold = threshold

	keptIDs := make(map[string]bool, len(kept))
	for _, it := range kept {
		keptIDs[it.ID] = true
	}
	for _, it := range onTopic {
		if !keptIDs[it.ID] {
			out.Excluded[it.ID] = r.belowBarReason(it, threshold)
		}
	}

	if len(kept) > profile.MaxItems {
		for i, it := range kept[profile.MaxItems:] {
			out.Excluded[it.ID] = fmt.Sprintf("rank %d beyond max_items %d", profile.MaxItems+i+1, profile.MaxItems)
		}
		kept = kept[:profile.MaxItems]
	}
	out.Items = kept
	return out, nil
}

func (r *Ranker) score(c types.CandidateItem, profile types.CategoryProfile, judgments map[string]types.ModelJudgment, lexScore float64, now time.Time) types.RankedItem {
	it := types.RankedItem{CandidateItem: c, LexicalScore: lexScore}

	source := "lexical fallback"
	if j, ok := judgments[c.ID]; ok {
		it.Judgment = &j
		it.ModelScore = clamp((relevanceWeight*j.Relevance+usefulnessWeight*j.Usefulness)/10, 0, 1)
		source = fmt.Sprintf("judged rel=%.0f use=%.0f", j.Relevance, j.Usefulness)
	} else {
		it.ModelScore = lexScore
	}

	it.RecencyScore = Recency(c.PublishedAt, now, profile.HalfLifeDays)

	boost := r.opts.Boost.Apply(boostText(c), profile.BoostTerms, profile.PriorityTerms)
	it.BoostMultiplier = boost.Multiplier

	w := profile.Weights
	base := w.Model*it.ModelScore + w.Lexical*it.LexicalScore + w.Recency*it.RecencyScore
	it.FinalScore = boost.Multiplier * base

	var sb strings.Builder
	fmt.Fprintf(&sb, "model=%.2f (%s) lexical=%.2f recency=%.2f", it.ModelScore, source, it.LexicalScore, it.RecencyScore)
	if len(boost.Matched) > 0 {
		kind := "terms"
		if boost.Priority {
			kind = "priority"
		}
		fmt.Fprintf(&sb, " boost=x%.1f [%s: %s]", boost.Multiplier, kind, strings.Join(boost.Matched, ", "))
	}
	fmt.Fprintf(&sb, " final=%.3f", it.FinalScore)
	it.Reasoning = sb.String()
	return it
}

// filterAt keeps items that clear threshold. Judged items are held to the
// threshold; unjudged items to the fixed unjudged bar.
func (r *Ranker) filterAt(items []types.RankedItem, threshold int) []types.RankedItem {
	var kept []types.RankedItem
	for _, it := range items {
		if r.clears(it, threshold) {
			kept = append(kept, it)
		}
	}
	return kept
}

func (r *Ranker) clears(it types.RankedItem, threshold int) bool {
	if it.Judgment != nil {
		return it.Judgment.Relevance >= float64(threshold)
	}
	return it.ModelScore*10 >= r.opts.UnjudgedBar
}

func (r *Ranker) belowBarReason(it types.RankedItem, threshold int) string {
	if it.Judgment != nil {
		return fmt.Sprintf("relevance %.0f below threshold %d", it.Judgment.Relevance, threshold)
	}
	return fmt.Sprintf("unjudged fallback %.1f below bar %.1f", it.ModelScore*10, r.opts.UnjudgedBar)
}

func (r *Ranker) offTopic(it types.RankedItem) (string, bool) {
	if it.Judgment == nil {
		return "", false
	}
	for _, tag := range r.opts.OffTopicTags {
		if it.Judgment.HasTag(tag) {
			return tag, true
		}
	}
	return "", false
}

// rejectURL returns a non-empty reason when raw cannot enter scoring: it is
// empty, not absolute, or points at a loopback host.
func rejectURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "empty url"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("unparseable url: %v", err)
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return fmt.Sprintf("url %q is not absolute", raw)
	}
	if isLoopback(u.Hostname()) {
		return fmt.Sprintf("url %q points at a loopback host", raw)
	}
	return ""
}

func isLoopback(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}
