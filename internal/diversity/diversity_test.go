// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package diversity

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/digest-engine/pkg/types"
)

func ranked(id, source, url string, score float64) types.RankedItem {
	return types.RankedItem{
		CandidateItem: types.CandidateItem{ID: id, SourceName: source, URL: url},
		FinalScore:    score,
	}
}

func profile(maxItems int) types.CategoryProfile {
	return types.CategoryProfile{Name: "tech_articles", MaxItems: maxItems}
}

// pool builds n items spread over the given sources round-robin with
// strictly descending scores.
func pool(n int, sources ...string) []types.RankedItem {
	items := make([]types.RankedItem, n)
	for i := range items {
		src := sources[i%len(sources)]
		items[i] = ranked(fmt.Sprintf("i%02d", i), src, fmt.Sprintf("https://%s.example.com/p/%d", src, i), float64(n-i))
	}
	return items
}

func itemIDs(items []types.RankedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestURLKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://Example.com/Post?utm=1#frag", "example.com/Post"},
		{"https://example.com/post/", "example.com/post"},
		{"http://example.com/post?a=b", "example.com/post"},
		{"https://example.com", "example.com"},
		{"  https://example.com/x  ", "example.com/x"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, URLKey(tt.raw))
		})
	}
}

func TestTarget(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		maxItems    int
		poolSize    int
		wantTarget  int
		wantMinimum int
	}{
		{"absolute minimum dominates", Options{}, 12, 50, 12, 10},
		{"fraction dominates", Options{}, 30, 50, 30, 21},
		{"minimum never above target", Options{}, 5, 50, 5, 5},
		{"minimum never above pool", Options{}, 30, 4, 30, 4},
		{"override replaces max", Options{MaxOverride: 40}, 10, 100, 40, 27},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, minimum := tt.opts.Target(tt.maxItems, tt.poolSize)
			assert.Equal(t, tt.wantTarget, target)
			assert.Equal(t, tt.wantMinimum, minimum)
		})
	}
}

func TestSelectDeduplicatesByURL(t *testing.T) {
	items := []types.RankedItem{
		ranked("a", "s1", "https://blog.example.com/post?utm_source=rss", 0.9),
		ranked("b", "s2", "https://other.example.com/x", 0.8),
		ranked("c", "s3", "https://BLOG.example.com/post?utm_source=mail#top", 0.7),
	}

	res := Select(items, profile(10), Options{})
	assert.Equal(t, []string{"a", "b"}, itemIDs(res.Items))
	assert.Contains(t, res.Reasons["c"], "duplicate url of a")
	assert.Len(t, res.Reasons, 3)
}

func TestSelectDropsNoise(t *testing.T) {
	items := []types.RankedItem{
		ranked("a", "s1", "https://a.example.com/1", 0.9),
		ranked("z", "s2", "https://z.example.com/1", 0),
	}
	res := Select(items, profile(10), Options{})
	assert.Equal(t, []string{"a"}, itemIDs(res.Items))
	assert.Contains(t, res.Reasons["z"], "quality floor")
}

func TestSelectPerSourceCap(t *testing.T) {
	// 12 items over 4 sources: a non-relaxed pass can fill the target.
	items := pool(12, "alpha", "beta", "gamma", "delta")
	items = append(items, pool(6, "alpha")...)
	for i := 12; i < len(items); i++ {
		items[i].ID = fmt.Sprintf("extra%d", i)
		items[i].URL = fmt.Sprintf("https://alpha.example.com/extra/%d", i)
		items[i].FinalScore = 0.5
	}

	res := Select(items, profile(10), Options{PerSourceCap: 3})
	require.False(t, res.Relaxed)
	assert.Len(t, res.Items, 10)

	counts := map[string]int{}
	for _, it := range res.Items {
		counts[it.SourceName]++
	}
	for src, n := range counts {
		assert.LessOrEqual(t, n, 3, src)
	}
	for _, it := range items {
		assert.Contains(t, res.Reasons, it.ID, "every examined item needs a reason")
	}
}

func TestSelectRecordsRank(t *testing.T) {
	res := Select(pool(3, "a", "b", "c"), profile(10), Options{})
	assert.Equal(t, "selected at rank 1", res.Reasons["i00"])
	assert.Equal(t, "selected at rank 3", res.Reasons["i02"])
}

func TestSelectRankFollowsOutputOrder(t *testing.T) {
	// x1 is capped in the first pass and admitted by the relaxed fill, so
	// it lands between items accepted earlier.
	items := []types.RankedItem{
		ranked("x0", "a", "https://a.example.com/0", 0.9),
		ranked("x1", "a", "https://a.example.com/1", 0.8),
		ranked("x2", "b", "https://b.example.com/2", 0.7),
		ranked("x3", "c", "https://c.example.com/3", 0.6),
	}

	res := Select(items, profile(4), Options{PerSourceCap: 1})
	require.True(t, res.Relaxed)
	require.Equal(t, []string{"x0", "x1", "x2", "x3"}, itemIDs(res.Items))
	for pos, it := range res.Items {
		assert.True(t, strings.HasPrefix(res.Reasons[it.ID], fmt.Sprintf("selected at rank %d", pos+1)), "%s: %s", it.ID, res.Reasons[it.ID])
	}
	assert.Contains(t, res.Reasons["x1"], "relaxed")
}

func TestSelectNoiseTwinNotReportedAsDuplicate(t *testing.T) {
	items := []types.RankedItem{
		ranked("a", "s1", "https://a.example.com/1", 0.9),
		ranked("noise", "s2", "https://n.example.com/post", 0),
		ranked("twin", "s3", "https://n.example.com/post?ref=x", 0),
	}

	res := Select(items, profile(10), Options{})
	assert.Equal(t, []string{"a"}, itemIDs(res.Items))
	assert.Contains(t, res.Reasons["twin"], "quality floor")
	assert.NotContains(t, res.Reasons["twin"], "duplicate url of noise")
}

func TestSelectTargetReached(t *testing.T) {
	res := Select(pool(8, "a", "b", "c", "d", "e", "f", "g", "h"), profile(5), Options{})
	assert.Len(t, res.Items, 5)
	assert.Contains(t, res.Reasons["i07"], "target of 5 reached")
}

func TestSelectRelaxesToMeetMinimum(t *testing.T) {
	// Two sources only: the regular cap of 3 admits 6 items, below the
	// minimum of 10. The relaxed cap of 6 per source admits the rest.
	items := pool(14, "alpha", "beta")

	res := Select(items, profile(12), Options{PerSourceCap: 3})
	require.True(t, res.Relaxed)
	assert.Len(t, res.Items, 10)

	counts := map[string]int{}
	relaxed := 0
	for _, it := range res.Items {
		counts[it.SourceName]++
		if strings.Contains(res.Reasons[it.ID], "relaxed") {
			relaxed++
		}
	}
	assert.Equal(t, 4, relaxed)
	for _, n := range counts {
		assert.LessOrEqual(t, n, 6)
	}

	// Output keeps score order.
	for i := 1; i < len(res.Items); i++ {
		assert.Greater(t, res.Items[i-1].FinalScore, res.Items[i].FinalScore)
	}
}

func TestSelectRelaxedCapStillBounded(t *testing.T) {
	items := pool(20, "only")

	res := Select(items, profile(12), Options{PerSourceCap: 2, RelaxedCapFactor: 2})
	assert.True(t, res.Relaxed)
	assert.Len(t, res.Items, 4, "relaxed cap is never unbounded")
	assert.Contains(t, res.Reasons["i19"], "relaxed cap 4")
}

func TestSelectIdempotent(t *testing.T) {
	tests := []struct {
		name  string
		items []types.RankedItem
		max   int
	}{
		{"diverse pool", pool(30, "a", "b", "c", "d", "e"), 10},
		{"concentrated pool", pool(14, "alpha", "beta"), 12},
		{"with duplicates", append(pool(6, "a", "b"), ranked("dup", "c", "https://a.example.com/p/0?x=1", 0.1)), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{PerSourceCap: 3}
			first := Select(tt.items, profile(tt.max), opts)
			second := Select(first.Items, profile(tt.max), opts)
			assert.Equal(t, itemIDs(first.Items), itemIDs(second.Items))
		})
	}
}

func TestSelectEmpty(t *testing.T) {
	res := Select(nil, profile(10), Options{})
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Reasons)
	assert.False(t, res.Relaxed)
}
