// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// Run is one recorded digest.
type Run struct {
	ID          int64     `json:"id" yaml:"id"`
	Category    string    `json:"category" yaml:"category"`
	Period      string    `json:"period" yaml:"period"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Candidates  int       `json:"candidates" yaml:"candidates"`
	Threshold   int       `json:"threshold" yaml:"threshold"`
	Relaxed     bool      `json:"relaxed" yaml:"relaxed"`
	ItemIDs     []string  `json:"item_ids" yaml:"item_ids"`
}

// RecordDigest appends d to the run history and returns the new run ID.
func (s *Store) RecordDigest(ctx context.Context, d types.Digest) (int64, error) {
	ids := make([]string, len(d.Items))
	for i, it := range d.Items {
		ids[i] = it.ID
	}
	idJSON, err := json.Marshal(ids)
	if err != nil {
		return 0, fmt.Errorf("encoding item ids: %w", err)
	}

	query, args, err := sq.Insert("digest_runs").
		Columns("category", "period", "generated_at", "candidates", "threshold", "relaxed", "item_ids").
		Values(d.Category, string(d.Period), d.GeneratedAt.UTC().Format(timeLayout), d.Candidates, d.Threshold, d.Relaxed, string(idJSON)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building run insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("recording digest for %s: %w", d.Category, err)
	}
	return res.LastInsertId()
}

// Runs lists recorded digests, newest first. An empty category lists all
// categories; limit ≤ 0 means no limit.
func (s *Store) Runs(ctx context.Context, category string, limit int) ([]Run, error) {
	q := sq.Select("id", "category", "period", "generated_at", "candidates", "threshold", "relaxed", "item_ids").
		From("digest_runs").
		OrderBy("generated_at DESC", "id DESC")
	if category != "" {
		q = q.Where(sq.Eq{"category": category})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			generated string
			ids       string
		)
		if err := rows.Scan(&r.ID, &r.Category, &r.Period, &generated, &r.Candidates, &r.Threshold, &r.Relaxed, &ids); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
			return nil, fmt.Errorf("parsing generated_at for run %d: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(ids), &r.ItemIDs); err != nil {
			return nil, fmt.Errorf("decoding item ids for run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
