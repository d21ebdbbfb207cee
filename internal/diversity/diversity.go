// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package diversity picks the final shortlist from a ranked list: it
// removes duplicate URLs, caps how many items one source may contribute,
// and guarantees a minimum digest size by relaxing the cap when the pool
// is too concentrated.
package diversity

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/digest-engine/pkg/types"
)

const (
	DefaultPerSourceCap     = 3
	DefaultMinFraction      = 0.67
	DefaultAbsoluteMin      = 10
	DefaultRelaxedCapFactor = 2

	// DefaultQualityFloor drops items whose score is effectively zero.
	DefaultQualityFloor = 1e-3
)

// Options controls a selection pass. Zero values select the defaults.
type Options struct {
	PerSourceCap int

	// MaxOverride replaces the profile's MaxItems as the target when positive.
	MaxOverride int

	MinFraction      float64
	AbsoluteMin      int
	RelaxedCapFactor int
	QualityFloor     float64
}

// OptionsFromConfig maps the selection config onto Options.
func OptionsFromConfig(cfg types.SelectionConfig) Options {
	return Options{
		PerSourceCap:     cfg.PerSourceCap,
		MinFraction:      cfg.MinFraction,
		AbsoluteMin:      cfg.AbsoluteMin,
		RelaxedCapFactor: cfg.RelaxedCapFactor,
	}
}

func (o Options) withDefaults() Options {
	if o.PerSourceCap <= 0 {
		o.PerSourceCap = DefaultPerSourceCap
	}
	if o.MinFraction <= 0 || o.MinFraction > 1 {
		o.MinFraction = DefaultMinFraction
	}
	if o.AbsoluteMin <= 0 {
		o.AbsoluteMin = DefaultAbsoluteMin
	}
	if o.RelaxedCapFactor < 1 {
		o.RelaxedCapFactor = DefaultRelaxedCapFactor
	}
	if o.QualityFloor <= 0 {
		o.QualityFloor = DefaultQualityFloor
	}
	return o
}

// Target returns the maximum and minimum selection sizes for a pool of
// poolSize items. The minimum is max(ceil(target*MinFraction), AbsoluteMin),
// never above the target or the pool.
func (o Options) Target(maxItems, poolSize int) (target, minimum int) {
	o = o.withDefaults()
	target = maxItems
	if o.MaxOverride > 0 {
		target = o.MaxOverride
	}
	minimum = int(math.Ceil(float64(target) * o.MinFraction))
	if minimum < o.AbsoluteMin {
		minimum = o.AbsoluteMin
	}
	if minimum > target {
		minimum = target
	}
	if minimum > poolSize {
		minimum = poolSize
	}
	return target, minimum
}

// URLKey returns the dedup key for a URL: lowercased hostname plus path,
// with query, fragment, and trailing slash removed. Unparseable URLs key on
// their trimmed, lowercased text.
func URLKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.ToLower(raw)
	}
	return strings.ToLower(u.Hostname()) + strings.TrimRight(u.EscapedPath(), "/")
}

// Select picks the shortlist from items, which must already be sorted by
// FinalScore descending. Every examined item gets an entry in Reasons.
func Select(items []types.RankedItem, profile types.CategoryProfile, opts Options) types.SelectionResult {
	opts = opts.withDefaults()
	res := types.SelectionResult{Reasons: make(map[string]string, len(items))}

	// Dedup and noise floor.
	seen := make(map[string]string)
	pool := make([]types.RankedItem, 0, len(items))
	for _, it := range items {
		key := URLKey(it.URL)
		if keptID, dup := seen[key]; dup {
			res.Reasons[it.ID] = fmt.Sprintf("excluded: duplicate url of %s (%s)", keptID, key)
			continue
		}
		if it.FinalScore < opts.QualityFloor {
			res.Reasons[it.ID] = fmt.Sprintf("excluded: score %.4f below quality floor %.4f", it.FinalScore, opts.QualityFloor)
			continue
		}
		seen[key] = it.ID
		pool = append(pool, it)
	}

	target, minimum := opts.Target(profile.MaxItems, len(pool))

	// Greedy pass under the regular cap.
	accepted := make([]int, 0, target)
	perSource := make(map[string]int)
	var capped []int
	for i, it := range pool {
		if len(accepted) >= target {
			res.Reasons[it.ID] = fmt.Sprintf("excluded: target of %d reached", target)
			continue
		}
		if perSource[it.SourceName] >= opts.PerSourceCap {
			res.Reasons[it.ID] = fmt.Sprintf("excluded: source %q at cap %d", it.SourceName, opts.PerSourceCap)
			capped = append(capped, i)
			continue
		}
		perSource[it.SourceName]++
		accepted = append(accepted, i)
	}

	// Minimum-fill pass over cap-rejected items with a wider, still bounded cap.
	relaxed := make(map[int]string)
	if len(accepted) < minimum && len(capped) > 0 {
		relaxedCap := opts.PerSourceCap * opts.RelaxedCapFactor
		for _, i := range capped {
			if len(accepted) >= minimum {
				break
			}
			it := pool[i]
			if perSource[it.SourceName] >= relaxedCap {
				res.Reasons[it.ID] = fmt.Sprintf("excluded: source %q at relaxed cap %d", it.SourceName, relaxedCap)
				continue
			}
			perSource[it.SourceName]++
			accepted = append(accepted, i)
			res.Relaxed = true
			relaxed[i] = fmt.Sprintf(" (relaxed: source cap %d -> %d to reach minimum %d)", opts.PerSourceCap, relaxedCap, minimum)
		}
	}

	// Ranks are output positions, counted after relaxed items merge back.
	sort.Ints(accepted)
	res.Items = make([]types.RankedItem, 0, len(accepted))
	for pos, i := range accepted {
		it := pool[i]
		res.Items = append(res.Items, it)
		res.Reasons[it.ID] = fmt.Sprintf("selected at rank %d%s", pos+1, relaxed[i])
	}
	return res
}
