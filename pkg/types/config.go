// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrConfiguration is the sentinel matched by every ConfigError.
var ErrConfiguration = errors.New("configuration error")

// ConfigError reports a missing or invalid category profile. It is fatal:
// callers must not fall back to defaults when they see one.
type ConfigError struct {
	Category string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: category %q: %s", e.Category, e.Reason)
}

// Is lets errors.Is match any ConfigError against ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// weightSumTolerance is how far the profile weights may drift from 1.
const weightSumTolerance = 0.05

// Weights are the mixing weights of the composite score.
type Weights struct {
	Lexical float64 `json:"lexical" yaml:"lexical" mapstructure:"lexical"`
	Model   float64 `json:"model" yaml:"model" mapstructure:"model"`
	Recency float64 `json:"recency" yaml:"recency" mapstructure:"recency"`
}

// Sum returns the total of the three weights.
func (w Weights) Sum() float64 {
	return w.Lexical + w.Model + w.Recency
}

// CategoryProfile is the static ranking configuration of one category.
type CategoryProfile struct {
	// Name is the category key (e.g. "tech_articles").
	Name string `json:"name" yaml:"name"`

	// QueryTerms are the lexical query the category is scored against.
	QueryTerms []string `json:"query_terms" yaml:"query_terms"`

	// HalfLifeDays is the recency half-life. Must be positive.
	HalfLifeDays float64 `json:"half_life_days" yaml:"half_life_days"`

	// MaxItems caps the ranked output and is the default selection target.
	MaxItems int `json:"max_items" yaml:"max_items"`

	// MinRelevance is the starting judgment threshold on the 0-10 scale.
	MinRelevance int `json:"min_relevance" yaml:"min_relevance"`

	// Weights mix the model, lexical, and recency components.
	Weights Weights `json:"weights" yaml:"weights"`

	// BoostTerms are domain terms that mark an item as clearly on-topic.
	BoostTerms []string `json:"boost_terms,omitempty" yaml:"boost_terms,omitempty"`

	// PriorityTerms override stacking with the single highest multiplier.
	PriorityTerms []string `json:"priority_terms,omitempty" yaml:"priority_terms,omitempty"`

	// WindowDays overrides the period window when positive.
	WindowDays int `json:"window_days,omitempty" yaml:"window_days,omitempty"`
}

// Validate checks the profile and returns a *ConfigError describing the
// first problem found.
func (p CategoryProfile) Validate() error {
	fail := func(format string, args ...any) error {
		return &ConfigError{Category: p.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if p.Name == "" {
		return fail("profile has no name")
	}
	if len(p.QueryTerms) == 0 {
		return fail("no query terms")
	}
	if !(p.HalfLifeDays > 0) {
		return fail("half_life_days must be positive, got %v", p.HalfLifeDays)
	}
	if p.MaxItems <= 0 {
		return fail("max_items must be positive, got %d", p.MaxItems)
	}
	if p.MinRelevance < 0 || p.MinRelevance > 10 {
		return fail("min_relevance must be within [0,10], got %d", p.MinRelevance)
	}
	w := p.Weights
	if w.Lexical < 0 || w.Model < 0 || w.Recency < 0 {
		return fail("weights must be non-negative, got %+v", w)
	}
	if math.Abs(w.Sum()-1) > weightSumTolerance {
		return fail("weights must sum to 1, got %.3f", w.Sum())
	}
	if p.WindowDays < 0 {
		return fail("window_days must not be negative, got %d", p.WindowDays)
	}
	return nil
}

// Period is the cadence a digest covers.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// WindowDays returns the candidate time window for the period.
func (p Period) WindowDays() (int, error) {
	switch p {
	case PeriodDaily:
		return 1, nil
	case PeriodWeekly, "":
		return 7, nil
	case PeriodMonthly:
		return 30, nil
	default:
		return 0, &ConfigError{Reason: fmt.Sprintf("unknown period %q: use daily, weekly, or monthly", string(p))}
	}
}

// StoreConfig holds settings for the SQLite item store.
type StoreConfig struct {
	// Dir is the directory holding digest.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// FeedsDir is the directory of YAML item batches read by ingest.
	FeedsDir string `json:"feeds_dir" yaml:"feeds_dir" mapstructure:"feeds_dir"`
}

// SelectionConfig holds diversity selection settings.
type SelectionConfig struct {
	// PerSourceCap is the maximum number of items any one source may contribute (default 3).
	PerSourceCap int `json:"per_source_cap" yaml:"per_source_cap" mapstructure:"per_source_cap"`

	// MinFraction is the share of the target that must be filled (default 0.67).
	MinFraction float64 `json:"min_fraction" yaml:"min_fraction" mapstructure:"min_fraction"`

	// AbsoluteMin is the minimum count when the pool allows (default 10).
	AbsoluteMin int `json:"absolute_min" yaml:"absolute_min" mapstructure:"absolute_min"`

	// RelaxedCapFactor widens the per-source cap during minimum fill (default 2).
	RelaxedCapFactor int `json:"relaxed_cap_factor" yaml:"relaxed_cap_factor" mapstructure:"relaxed_cap_factor"`
}

// RerankConfig selects the focus boost band preset.
type RerankConfig struct {
	// Bands is "aggressive" (default) or "soft".
	Bands string `json:"bands" yaml:"bands" mapstructure:"bands"`
}

// JudgeConfig points at an optional remote judgment service. When Endpoint
// is empty, judgments are read from the local store.
type JudgeConfig struct {
	Endpoint   string        `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	BatchSize  int           `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent  string        `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// PipelineConfig groups every stage configuration.
type PipelineConfig struct {
	Profiles  string          `json:"profiles" yaml:"profiles" mapstructure:"profiles"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Selection SelectionConfig `json:"selection" yaml:"selection" mapstructure:"selection"`
	Rerank    RerankConfig    `json:"rerank" yaml:"rerank" mapstructure:"rerank"`
	Judge     JudgeConfig     `json:"judge" yaml:"judge" mapstructure:"judge"`
	LogLevel  string          `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}
