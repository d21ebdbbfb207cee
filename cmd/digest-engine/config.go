// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/digest-engine/internal/digest"
	"github.com/pdiddy/digest-engine/internal/diversity"
	"github.com/pdiddy/digest-engine/internal/judge"
	"github.com/pdiddy/digest-engine/internal/profile"
	"github.com/pdiddy/digest-engine/internal/ranking"
	"github.com/pdiddy/digest-engine/internal/rerank"
	"github.com/pdiddy/digest-engine/internal/secrets"
	"github.com/pdiddy/digest-engine/internal/store"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// setDefaults registers every config key so environment overrides apply
// even when no config file sets them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("secrets_dir", ".secrets/")
	v.SetDefault("profiles", "")
	v.SetDefault("digests_dir", "digests")

	v.SetDefault("store.dir", "store")
	v.SetDefault("store.feeds_dir", "feeds")

	v.SetDefault("selection.per_source_cap", diversity.DefaultPerSourceCap)
	v.SetDefault("selection.min_fraction", diversity.DefaultMinFraction)
	v.SetDefault("selection.absolute_min", diversity.DefaultAbsoluteMin)
	v.SetDefault("selection.relaxed_cap_factor", diversity.DefaultRelaxedCapFactor)

	v.SetDefault("rerank.bands", "aggressive")

	v.SetDefault("judge.endpoint", "")
	v.SetDefault("judge.timeout", 30*time.Second)
	v.SetDefault("judge.batch_size", 100)
	v.SetDefault("judge.max_retries", 4)
	v.SetDefault("judge.user_agent", "digest-engine/"+version)
}

// loadConfig decodes the merged file, environment, and default settings.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// loadProfiles reads the configured profiles file, or the built-in set
// when none is configured.
func loadProfiles(cfg types.PipelineConfig) (*profile.Set, error) {
	if cfg.Profiles == "" {
		return profile.Default(), nil
	}
	return profile.Load(cfg.Profiles)
}

// env bundles what a command needs to run the pipeline. Close releases
// the store.
type env struct {
	cfg      types.PipelineConfig
	store    *store.Store
	profiles *profile.Set
	pipeline *digest.Pipeline
}

func (e *env) Close() error {
	return e.store.Close()
}

// openEnv loads configuration and profiles, opens the store, and wires the
// pipeline. record controls whether digests are written to run history.
func openEnv(record bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	profiles, err := loadProfiles(cfg)
	if err != nil {
		return nil, err
	}
	bands, err := rerank.BandsByName(cfg.Rerank.Bands)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}

	p := &digest.Pipeline{
		Profiles:   profiles,
		Candidates: st,
		Judgments:  st,
		Ranker:     ranking.NewRanker(ranking.Options{Boost: profiles.Boost()}),
		Reranker:   rerank.New(bands),
		Selection:  diversity.OptionsFromConfig(cfg.Selection),
		Logger:     slog.Default(),
	}
	if cfg.Judge.Endpoint != "" {
		key, _ := loadedSecrets.Lookup(secrets.JudgeAPIKey)
		p.Judgments = judge.New(cfg.Judge, key)
		slog.Debug("using remote judgments", "endpoint", cfg.Judge.Endpoint)
	}
	if record {
		p.Recorder = st
	}

	return &env{cfg: cfg, store: st, profiles: profiles, pipeline: p}, nil
}
