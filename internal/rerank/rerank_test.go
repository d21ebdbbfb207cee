// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/digest-engine/pkg/types"
)

func rankedItem(id, title string, score float64, tags ...string) types.RankedItem {
	it := types.RankedItem{
		CandidateItem: types.CandidateItem{ID: id, Title: title, URL: "https://example.com/" + id},
		FinalScore:    score,
	}
	if tags != nil {
		it.Judgment = &types.ModelJudgment{Relevance: 7, Usefulness: 7, Tags: tags}
	}
	return it
}

func ids(items []types.RankedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestBandsBoostMonotonic(t *testing.T) {
	for _, bands := range []Bands{AggressiveBands(), SoftBands()} {
		prev := 0.0
		for a := 0.0; a <= 1.0; a += 0.01 {
			b := bands.Boost(a)
			assert.GreaterOrEqual(t, b, prev, "alignment %.2f", a)
			prev = b
		}
	}
}

func TestAggressiveBands(t *testing.T) {
	tests := []struct {
		alignment float64
		want      float64
	}{
		{0, 0.3},
		{0.1, 0.3},
		{0.2, 2.0},
		{0.3, 2.0},
		{0.4, 3.0},
		{0.5, 3.0},
		{0.75, 5.0},
		{1, 5.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, AggressiveBands().Boost(tt.alignment), 1e-12, "alignment %.2f", tt.alignment)
	}
}

func TestBandsByName(t *testing.T) {
	b, err := BandsByName("")
	require.NoError(t, err)
	assert.Equal(t, AggressiveBands(), b)

	b, err = BandsByName(" Soft ")
	require.NoError(t, err)
	assert.Equal(t, SoftBands(), b)

	_, err = BandsByName("wild")
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestAlignmentTagSeparatorsNormalized(t *testing.T) {
	it := rankedItem("a", "Improving code search latency", 1, "code-search")

	got := Alignment(it, []string{"code search"})
	assert.InDelta(t, 1.0, got, 1e-12)

	out := New(AggressiveBands()).Rerank([]types.RankedItem{it}, types.FocusProfile{FocusTopics: []string{"code search"}})
	require.Len(t, out, 1)
	assert.InDelta(t, 5.0, out[0].FocusBoost, 1e-12, "strong band")
	assert.InDelta(t, 5.0, out[0].FinalScore, 1e-12)
}

func TestAlignmentTagMatchOnly(t *testing.T) {
	it := rankedItem("a", "Weekly notes", 1, "Code_Search", "databases")
	// One of two tags overlaps; no topic appears in the text.
	assert.InDelta(t, 0.25, Alignment(it, []string{"code search"}), 1e-12)
}

func TestAlignmentTermMatchOnly(t *testing.T) {
	it := rankedItem("a", "Rust and Go compilers", 1)
	it.Summary = "A look at rust tooling."
	assert.InDelta(t, 0.25, Alignment(it, []string{"rust", "kotlin"}), 1e-12)
}

func TestAlignmentSubstringEitherDirection(t *testing.T) {
	it := rankedItem("a", "nothing here", 1, "search")
	assert.InDelta(t, 0.5, Alignment(it, []string{"code search"}), 1e-12, "tag contained in topic")

	it = rankedItem("b", "nothing here", 1, "semantic code search tools")
	assert.InDelta(t, 0.5, Alignment(it, []string{"code search"}), 1e-12, "topic contained in tag")
}

func TestRerankNoFocusIsNoop(t *testing.T) {
	items := []types.RankedItem{rankedItem("a", "x", 2), rankedItem("b", "y", 1)}
	for _, focus := range []types.FocusProfile{{}, {FocusTopics: []string{"", "  "}}, {ExcludeTopics: []string{"x"}}} {
		out := New(AggressiveBands()).Rerank(items, focus)
		assert.Equal(t, items, out)
	}
}

func TestRerankAlignmentDominates(t *testing.T) {
	items := []types.RankedItem{
		rankedItem("baseline", "General industry news", 1.0),
		rankedItem("aligned", "Code search at scale", 0.3, "code-search"),
	}

	out := New(AggressiveBands()).Rerank(items, types.FocusProfile{FocusTopics: []string{"code search"}})
	assert.Equal(t, []string{"aligned", "baseline"}, ids(out))
	assert.InDelta(t, 0.3, out[1].FinalScore, 1e-12, "unaligned items are demoted, not removed")
	assert.Contains(t, out[0].Reasoning, "focus=1.00")

	// Input slice is untouched.
	assert.InDelta(t, 1.0, items[0].FinalScore, 1e-12)
}

func TestFilterByExclusions(t *testing.T) {
	items := []types.RankedItem{
		rankedItem("top", "Best crypto roundup", 9.0),
		rankedItem("tagged", "Market movers", 8.0, "Crypto-Currency"),
		rankedItem("clean", "Code search release", 1.0, "code-search"),
	}
	items[1].Summary = "nothing to see"

	out := FilterByExclusions(items, types.FocusProfile{ExcludeTopics: []string{"crypto"}})
	assert.Equal(t, []string{"clean"}, ids(out))

	out = FilterByExclusions(items, types.FocusProfile{ExcludeTopics: []string{"crypto currency"}})
	assert.Equal(t, []string{"top", "clean"}, ids(out), "separator-normalized tag match")

	assert.Equal(t, items, FilterByExclusions(items, types.FocusProfile{}))
}

func TestFilterByExclusionsBeatsHighestScore(t *testing.T) {
	items := []types.RankedItem{
		rankedItem("best", "Quarterly report", 100, "sports"),
		rankedItem("rest", "Compiler internals", 0.1),
	}
	out := FilterByExclusions(items, types.FocusProfile{ExcludeTopics: []string{"Sports"}})
	assert.Equal(t, []string{"rest"}, ids(out))
}
