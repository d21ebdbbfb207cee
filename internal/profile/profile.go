// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile loads category profiles and the domain boost table from
// a YAML file. Lookups validate the profile and fail with a ConfigError
// instead of falling back to defaults.
package profile

import (
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/digest-engine/internal/ranking"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// File is the on-disk layout of a profiles file.
type File struct {
	Boost      *ranking.BoostTable              `yaml:"boost,omitempty"`
	Categories map[string]types.CategoryProfile `yaml:"categories"`
}

// Set is an immutable collection of category profiles.
type Set struct {
	boost    ranking.BoostTable
	profiles map[string]types.CategoryProfile
}

// Load reads and parses the profiles file at path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing profiles %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a Set from YAML. Map keys name the categories; a profile's
// own name field, when present, must agree with its key.
func Parse(data []byte) (*Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Categories) == 0 {
		return nil, &types.ConfigError{Reason: "profiles file defines no categories"}
	}

	s := &Set{boost: ranking.DefaultBoostTable(), profiles: make(map[string]types.CategoryProfile, len(f.Categories))}
	if f.Boost != nil {
		s.boost = *f.Boost
	}
	for name, p := range f.Categories {
		if p.Name != "" && p.Name != name {
			return nil, &types.ConfigError{Category: name, Reason: fmt.Sprintf("name field %q does not match key", p.Name)}
		}
		p.Name = name
		s.profiles[name] = p
	}
	return s, nil
}

// Lookup returns the validated profile for category.
func (s *Set) Lookup(category string) (types.CategoryProfile, error) {
	p, ok := s.profiles[category]
	if !ok {
		return types.CategoryProfile{}, &types.ConfigError{Category: category, Reason: "unknown category"}
	}
	if err := ranking.ValidateProfile(p); err != nil {
		return types.CategoryProfile{}, err
	}
	return p, nil
}

// Names returns the category names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Boost returns the domain boost table shared by all categories.
func (s *Set) Boost() ranking.BoostTable {
	return s.boost
}

// Validate checks every profile and returns one error per invalid category.
func (s *Set) Validate() []error {
	var errs []error
	for _, name := range s.Names() {
		if err := ranking.ValidateProfile(s.profiles[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Default returns the built-in profiles used when no profiles file is configured.
func Default() *Set {
	w := types.Weights{Lexical: 0.3, Model: 0.5, Recency: 0.2}
	devTerms := []string{"code search", "code intelligence", "developer productivity", "static analysis", "refactoring", "monorepo", "language server", "code review"}
	aiTerms := []string{"coding agent", "code generation", "llm", "context window", "retrieval", "embeddings"}

	profiles := []types.CategoryProfile{
		{Name: "newsletters", QueryTerms: []string{"code", "developer", "engineering", "ai", "tools"}, HalfLifeDays: 3, MaxItems: 20, MinRelevance: 5, Weights: w, BoostTerms: devTerms},
		{Name: "podcasts", QueryTerms: []string{"developer", "engineering", "software", "interview"}, HalfLifeDays: 7, MaxItems: 10, MinRelevance: 5, Weights: types.Weights{Lexical: 0.2, Model: 0.6, Recency: 0.2}, BoostTerms: devTerms},
		{Name: "tech_articles", QueryTerms: []string{"code search", "developer tools", "software engineering", "programming"}, HalfLifeDays: 5, MaxItems: 20, MinRelevance: 5, Weights: w, BoostTerms: devTerms, PriorityTerms: []string{"code intelligence"}},
		{Name: "ai_news", QueryTerms: []string{"llm", "model", "agent", "ai", "machine learning"}, HalfLifeDays: 2, MaxItems: 20, MinRelevance: 5, Weights: types.Weights{Lexical: 0.25, Model: 0.5, Recency: 0.25}, BoostTerms: aiTerms, PriorityTerms: []string{"coding agent"}},
		{Name: "product_news", QueryTerms: []string{"release", "launch", "announcing", "changelog", "feature"}, HalfLifeDays: 3, MaxItems: 15, MinRelevance: 5, Weights: types.Weights{Lexical: 0.3, Model: 0.4, Recency: 0.3}, BoostTerms: devTerms},
		{Name: "community", QueryTerms: []string{"discussion", "developer", "open source", "show"}, HalfLifeDays: 2, MaxItems: 15, MinRelevance: 4, Weights: types.Weights{Lexical: 0.3, Model: 0.4, Recency: 0.3}},
		{Name: "research", QueryTerms: []string{"paper", "benchmark", "evaluation", "program synthesis", "code"}, HalfLifeDays: 30, MaxItems: 15, MinRelevance: 6, Weights: types.Weights{Lexical: 0.3, Model: 0.6, Recency: 0.1}, BoostTerms: append(append([]string{}, aiTerms...), "program repair", "code retrieval")},
	}

	s := &Set{boost: ranking.DefaultBoostTable(), profiles: make(map[string]types.CategoryProfile, len(profiles))}
	for _, p := range profiles {
		s.profiles[p.Name] = p
	}
	return s
}
