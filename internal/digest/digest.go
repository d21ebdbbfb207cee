// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package digest runs the full curation pass for a category: load the
// candidate window, attach judgments, rank, apply the focus profile, and
// select a diverse shortlist. Every dropped item carries a reason in the
// resulting Digest.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pdiddy/digest-engine/internal/diversity"
	"github.com/pdiddy/digest-engine/internal/ranking"
	"github.com/pdiddy/digest-engine/internal/rerank"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// CandidateSource returns the items of a category published within
// windowDays of now.
type CandidateSource interface {
	LoadCandidates(ctx context.Context, category string, windowDays int, now time.Time) ([]types.CandidateItem, error)
}

// JudgmentSource returns precomputed judgments. Ids without a judgment are
// absent from the map.
type JudgmentSource interface {
	LoadJudgments(ctx context.Context, ids []string) (map[string]types.ModelJudgment, error)
}

// ProfileSource resolves a category to its validated profile.
type ProfileSource interface {
	Lookup(category string) (types.CategoryProfile, error)
}

// Recorder persists produced digests.
type Recorder interface {
	RecordDigest(ctx context.Context, d types.Digest) (int64, error)
}

// Request describes one digest to build.
type Request struct {
	Category string
	Period   types.Period
	Focus    types.FocusProfile

	// PerSourceCap and MaxOverride replace the configured values when positive.
	PerSourceCap int
	MaxOverride  int
}

// Pipeline wires the stages together. Profiles and Candidates are
// required; Judgments and Recorder may be nil.
type Pipeline struct {
	Profiles   ProfileSource
	Candidates CandidateSource
	Judgments  JudgmentSource
	Recorder   Recorder

	Ranker    *ranking.Ranker
	Reranker  *rerank.Reranker
	Selection diversity.Options

	Logger *slog.Logger
	Now    func() time.Time
}

// Run builds the digest for req. Configuration problems fail before any
// data is loaded. An empty window yields an empty digest, not an error.
func (p *Pipeline) Run(ctx context.Context, req Request) (types.Digest, error) {
	log := p.logger().With("category", req.Category)

	profile, err := p.Profiles.Lookup(req.Category)
	if err != nil {
		return types.Digest{}, err
	}

	period := req.Period
	if period == "" {
		period = types.PeriodWeekly
	}
	window, err := period.WindowDays()
	if err != nil {
		return types.Digest{}, err
	}
	if profile.WindowDays > 0 {
		window = profile.WindowDays
	}

	now := p.now()
	d := types.Digest{
		Category:    req.Category,
		Period:      period,
		WindowDays:  window,
		GeneratedAt: now,
		Focus:       req.Focus,
		Threshold:   profile.MinRelevance,
		Items:       []types.RankedItem{},
		Reasons:     make(map[string]string),
	}

	candidates, err := p.Candidates.LoadCandidates(ctx, req.Category, window, now)
	if err != nil {
		return types.Digest{}, fmt.Errorf("loading candidates for %s: %w", req.Category, err)
	}
	d.Candidates = len(candidates)
	if len(candidates) == 0 {
		log.Info("no candidates in window", "window_days", window)
		return p.record(ctx, d)
	}

	var judgments map[string]types.ModelJudgment
	if p.Judgments != nil {
		ids := make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.ID
		}
		if judgments, err = p.Judgments.LoadJudgments(ctx, ids); err != nil {
			return types.Digest{}, fmt.Errorf("loading judgments for %s: %w", req.Category, err)
		}
	}
	if unjudged := len(candidates) - countJudged(candidates, judgments); unjudged > 0 {
		log.Debug("unjudged candidates use lexical fallback", "unjudged", unjudged, "candidates", len(candidates))
	}

	ranked, err := p.ranker().RankAt(candidates, profile, judgments, now)
	if err != nil {
		return types.Digest{}, err
	}
	d.Threshold = ranked.Threshold
	if ranked.Threshold < profile.MinRelevance {
		log.Info("relevance threshold relaxed", "from", profile.MinRelevance, "to", ranked.Threshold, "kept", len(ranked.Items))
	}
	for id, reason := range ranked.Excluded {
		d.Reasons[id] = "excluded: " + reason
	}

	items := excludeTopics(ranked.Items, req.Focus, d.Reasons)
	items = p.reranker().Rerank(items, req.Focus)

	opts := p.Selection
	if req.PerSourceCap > 0 {
		opts.PerSourceCap = req.PerSourceCap
	}
	if req.MaxOverride > 0 {
		opts.MaxOverride = req.MaxOverride
	}
	sel := diversity.Select(items, profile, opts)
	for id, reason := range sel.Reasons {
		d.Reasons[id] = reason
	}
	d.Items = sel.Items
	d.Relaxed = sel.Relaxed
	if sel.Relaxed {
		log.Info("source cap relaxed to reach minimum size", "selected", len(sel.Items))
	}
	if d.IsEmpty() {
		log.Info("nothing met the bar", "candidates", d.Candidates)
	}

	return p.record(ctx, d)
}

// Result is the outcome of one category in RunAll.
type Result struct {
	Category string
	Digest   types.Digest
	Err      error
}

// RunAll builds a digest for each category concurrently, using base for
// every other request field. Results come back in category order; one
// category's failure does not affect the others.
func (p *Pipeline) RunAll(ctx context.Context, categories []string, base Request) []Result {
	type indexed struct {
		i int
		r Result
	}

	ch := make(chan indexed, len(categories))
	var wg sync.WaitGroup
	for i, cat := range categories {
		wg.Add(1)
		go func(i int, cat string) {
			defer wg.Done()
			req := base
			req.Category = cat
			d, err := p.Run(ctx, req)
			ch <- indexed{i: i, r: Result{Category: cat, Digest: d, Err: err}}
		}(i, cat)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	results := make([]Result, len(categories))
	for ir := range ch {
		results[ir.i] = ir.r
	}
	return results
}

func (p *Pipeline) record(ctx context.Context, d types.Digest) (types.Digest, error) {
	if p.Recorder == nil {
		return d, nil
	}
	if _, err := p.Recorder.RecordDigest(ctx, d); err != nil {
		return d, fmt.Errorf("recording digest for %s: %w", d.Category, err)
	}
	return d, nil
}

// excludeTopics drops items matching the focus exclusions and records why.
func excludeTopics(items []types.RankedItem, focus types.FocusProfile, reasons map[string]string) []types.RankedItem {
	kept := rerank.FilterByExclusions(items, focus)
	if len(kept) == len(items) {
		return kept
	}

	keptIDs := make(map[string]bool, len(kept))
	for _, it := range kept {
		keptIDs[it.ID] = true
	}
	excludes := rerank.NormalizeTopics(focus.ExcludeTopics)
	for _, it := range items {
		if keptIDs[it.ID] {
			continue
		}
		topic, _ := rerank.ExcludedBy(it, excludes)
		reasons[it.ID] = fmt.Sprintf("excluded: matches excluded topic %q", topic)
	}
	return kept
}

func countJudged(items []types.CandidateItem, judgments map[string]types.ModelJudgment) int {
	n := 0
	for _, it := range items {
		if _, ok := judgments[it.ID]; ok {
			n++
		}
	}
	return n
}

func (p *Pipeline) ranker() *ranking.Ranker {
	if p.Ranker != nil {
		return p.Ranker
	}
	return ranking.NewRanker(ranking.Options{})
}

func (p *Pipeline) reranker() *rerank.Reranker {
	if p.Reranker != nil {
		return p.Reranker
	}
	return rerank.New(rerank.AggressiveBands())
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
