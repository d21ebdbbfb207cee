// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() CategoryProfile {
	return CategoryProfile{
		Name:         "tech_articles",
		QueryTerms:   []string{"code search"},
		HalfLifeDays: 3,
		MaxItems:     10,
		MinRelevance: 5,
		Weights:      Weights{Lexical: 0.3, Model: 0.5, Recency: 0.2},
	}
}

func TestCategoryProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *CategoryProfile)
		wantErr string
	}{
		{"valid", func(p *CategoryProfile) {}, ""},
		{"weights within tolerance", func(p *CategoryProfile) { p.Weights.Recency = 0.24 }, ""},
		{"missing name", func(p *CategoryProfile) { p.Name = "" }, "no name"},
		{"no query terms", func(p *CategoryProfile) { p.QueryTerms = nil }, "no query terms"},
		{"zero half-life", func(p *CategoryProfile) { p.HalfLifeDays = 0 }, "half_life_days"},
		{"zero max items", func(p *CategoryProfile) { p.MaxItems = 0 }, "max_items"},
		{"relevance above scale", func(p *CategoryProfile) { p.MinRelevance = 11 }, "min_relevance"},
		{"negative weight", func(p *CategoryProfile) { p.Weights.Lexical = -0.1; p.Weights.Model = 0.9 }, "non-negative"},
		{"weights off", func(p *CategoryProfile) { p.Weights.Model = 0.9 }, "sum to 1"},
		{"negative window", func(p *CategoryProfile) { p.WindowDays = -1 }, "window_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestPeriodWindowDays(t *testing.T) {
	tests := []struct {
		period Period
		want   int
	}{
		{PeriodDaily, 1},
		{PeriodWeekly, 7},
		{"", 7},
		{PeriodMonthly, 30},
	}
	for _, tt := range tests {
		got, err := tt.period.WindowDays()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, string(tt.period))
	}

	_, err := Period("hourly").WindowDays()
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestConfigErrorWrapped(t *testing.T) {
	err := fmt.Errorf("loading: %w", &ConfigError{Category: "podcasts", Reason: "unknown category"})
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Equal(t, `loading: configuration error: category "podcasts": unknown category`, err.Error())

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "podcasts", ce.Category)

	assert.False(t, errors.Is(errors.New("disk full"), ErrConfiguration))
}

func TestCandidateItemInCategory(t *testing.T) {
	it := CandidateItem{Category: "newsletters", Categories: []string{"ai_news"}}
	assert.True(t, it.InCategory("newsletters"))
	assert.True(t, it.InCategory("ai_news"))
	assert.False(t, it.InCategory("podcasts"))
}

func TestRankedItemTags(t *testing.T) {
	var it RankedItem
	assert.False(t, it.Judged())
	assert.Nil(t, it.Tags())

	it.Judgment = &ModelJudgment{Relevance: 8, Tags: []string{"Off-Topic"}}
	assert.True(t, it.Judged())
	assert.True(t, it.Judgment.HasTag("off-topic"))
	assert.False(t, it.Judgment.HasTag("rust"))
}
