// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lexical scores candidate items against a category query with BM25.
//
// An Index is built from scratch for every ranking pass. Corpora differ by
// category and time window, so there is no incremental update and no
// shared index between passes.
package lexical

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/digest-engine/pkg/types"
)

const (
	// DefaultK1 controls term-frequency saturation.
	DefaultK1 = 1.5

	// DefaultB controls document-length normalization.
	DefaultB = 0.75

	// DefaultMinTokenLen drops single-letter tokens. Documents and queries
	// share it, so two-letter terms like "ai" and "go" still match.
	DefaultMinTokenLen = 2
)

type document struct {
	id     string
	tf     map[string]int
	length int
}

// Index is a BM25 inverted index over one candidate set.
type Index struct {
	K1          float64
	B           float64
	MinTokenLen int

	docs      []document
	df        map[string]int
	avgDocLen float64
}

// Hit is one normalized search result.
type Hit struct {
	ID    string
	Score float64
}

// Build indexes items with the default parameters.
func Build(items []types.CandidateItem) *Index {
	idx := &Index{K1: DefaultK1, B: DefaultB, MinTokenLen: DefaultMinTokenLen}
	idx.Build(items)
	return idx
}

// Build replaces the index contents with items. Each document is the
// item's title, summary, source name, and category tags.
func (idx *Index) Build(items []types.CandidateItem) {
	idx.docs = make([]document, 0, len(items))
	idx.df = make(map[string]int)

	total := 0
	for _, it := range items {
		tokens := Tokenize(documentText(it), idx.MinTokenLen)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			idx.df[tok]++
		}
		idx.docs = append(idx.docs, document{id: it.ID, tf: tf, length: len(tokens)})
		total += len(tokens)
	}

	idx.avgDocLen = 0
	if len(idx.docs) > 0 {
		idx.avgDocLen = float64(total) / float64(len(idx.docs))
	}
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int { return len(idx.docs) }

// IDF returns the inverse document frequency of an already-tokenized term.
func (idx *Index) IDF(term string) float64 {
	n := float64(len(idx.docs))
	df := float64(idx.df[term])
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// Score returns the raw BM25 score of every document that contains at least
// one query term. Documents with no matching term are omitted.
func (idx *Index) Score(queryTerms []string) map[string]float64 {
	scores := make(map[string]float64)
	terms := idx.queryTokens(queryTerms)
	if len(terms) == 0 || len(idx.docs) == 0 {
		return scores
	}

	idfs := make([]float64, len(terms))
	for i, t := range terms {
		idfs[i] = idx.IDF(t)
	}

	for _, d := range idx.docs {
		var s float64
		matched := false
		lenNorm := 1 - idx.B
		if idx.avgDocLen > 0 {
			lenNorm += idx.B * float64(d.length) / idx.avgDocLen
		}
		for i, t := range terms {
			tf := float64(d.tf[t])
			if tf == 0 {
				continue
			}
			matched = true
			s += idfs[i] * (tf * (idx.K1 + 1)) / (tf + idx.K1*lenNorm)
		}
		if matched {
			scores[d.id] = s
		}
	}
	return scores
}

// Search scores the query, normalizes, and returns hits sorted by score
// descending. Ties keep corpus order.
func (idx *Index) Search(queryTerms []string) []Hit {
	norm := Normalize(idx.Score(queryTerms))
	hits := make([]Hit, 0, len(norm))
	for _, d := range idx.docs {
		if s, ok := norm[d.id]; ok {
			hits = append(hits, Hit{ID: d.id, Score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits
}

func (idx *Index) queryTokens(queryTerms []string) []string {
	return queryTokens(queryTerms, idx.MinTokenLen)
}

// QueryTokens returns the tokens queryTerms contribute to scoring under the
// default tokenizer. An empty result means the query can never match.
func QueryTokens(queryTerms []string) []string {
	return queryTokens(queryTerms, DefaultMinTokenLen)
}

// queryTokens tokenizes the query terms and drops repeats, keeping first
// occurrence order.
func queryTokens(queryTerms []string, minLen int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range queryTerms {
		for _, tok := range Tokenize(q, minLen) {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	return out
}

// Normalize divides every score by the maximum score so the best document
// maps to 1.0. When every score is zero the divisor is 1.
func Normalize(scores map[string]float64) map[string]float64 {
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max <= 0 {
		max = 1
	}
	out := make(map[string]float64, len(scores))
	for id, s := range scores {
		v := s / max
		if v < 0 {
			v = 0
		}
		out[id] = v
	}
	return out
}

// Tokenize lowercases text and splits it on anything that is not a letter
// or digit, keeping tokens of at least minLen runes.
func Tokenize(text string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minLen {
			out = append(out, f)
		}
	}
	return out
}

func documentText(it types.CandidateItem) string {
	parts := []string{it.Title, it.Summary, it.SourceName, it.Category}
	parts = append(parts, it.Categories...)
	return strings.Join(parts, " ")
}
