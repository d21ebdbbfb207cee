// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// judgmentChunk bounds the IN list of a single judgment query.
const judgmentChunk = 500

// LoadCandidates returns items in category (primary or secondary) published
// within windowDays of now, newest first. A zero window loads every item.
func (s *Store) LoadCandidates(ctx context.Context, category string, windowDays int, now time.Time) ([]types.CandidateItem, error) {
	q := sq.Select("id", "source_name", "title", "url", "published_at", "summary", "snippet", "full_text", "category", "categories").
		From("items").
		Where(sq.Or{
			sq.Eq{"category": category},
			sq.Expr("EXISTS (SELECT 1 FROM json_each(items.categories) WHERE json_each.value = ?)", category),
		}).
		OrderBy("published_at DESC", "id")
	if windowDays > 0 {
		cutoff := now.UTC().AddDate(0, 0, -windowDays)
		q = q.Where(sq.GtOrEq{"published_at": cutoff.Format(timeLayout)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building candidate query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidates for %s: %w", category, err)
	}
	defer rows.Close()

	var items []types.CandidateItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading candidates: %w", err)
	}
	return items, nil
}

// LoadJudgments returns the stored judgments for ids. Items with no
// judgment are absent from the map.
func (s *Store) LoadJudgments(ctx context.Context, ids []string) (map[string]types.ModelJudgment, error) {
	out := make(map[string]types.ModelJudgment, len(ids))
	for start := 0; start < len(ids); start += judgmentChunk {
		end := min(start+judgmentChunk, len(ids))

		query, args, err := sq.Select("item_id", "relevance", "usefulness", "tags").
			From("judgments").
			Where(sq.Eq{"item_id": ids[start:end]}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("building judgment query: %w", err)
		}
		if err := s.readJudgments(ctx, query, args, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) readJudgments(ctx context.Context, query string, args []any, out map[string]types.ModelJudgment) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying judgments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   string
			j    types.ModelJudgment
			tags sql.NullString
		)
		if err := rows.Scan(&id, &j.Relevance, &j.Usefulness, &tags); err != nil {
			return fmt.Errorf("scanning judgment: %w", err)
		}
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &j.Tags); err != nil {
				return fmt.Errorf("decoding tags for %s: %w", id, err)
			}
		}
		out[id] = j
	}
	return rows.Err()
}

// Categories returns every primary category present in the store with its
// item count.
func (s *Store) Categories(ctx context.Context) (map[string]int, error) {
	query, args, err := sq.Select("category", "COUNT(*)").From("items").GroupBy("category").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building category query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

func scanItem(rows *sql.Rows) (types.CandidateItem, error) {
	var (
		it                                types.CandidateItem
		url, summary, snippet, full, cats sql.NullString
		published                         string
	)
	if err := rows.Scan(&it.ID, &it.SourceName, &it.Title, &url, &published, &summary, &snippet, &full, &it.Category, &cats); err != nil {
		return it, fmt.Errorf("scanning item: %w", err)
	}
	t, err := time.Parse(timeLayout, published)
	if err != nil {
		return it, fmt.Errorf("parsing published_at for %s: %w", it.ID, err)
	}
	it.PublishedAt = t
	it.URL = url.String
	it.Summary = summary.String
	it.Snippet = snippet.String
	it.FullText = full.String
	if cats.Valid && cats.String != "" && cats.String != "null" {
		if err := json.Unmarshal([]byte(cats.String), &it.Categories); err != nil {
			return it, fmt.Errorf("decoding categories for %s: %w", it.ID, err)
		}
	}
	return it, nil
}
