// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/PuerkitoBio/goquery"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// Batch is one YAML file of items exported by a feed collector, plus any
// judgments already computed for them.
type Batch struct {
	// Source is the default SourceName for items that leave it empty.
	Source    string                `yaml:"source,omitempty"`
	Items     []types.CandidateItem `yaml:"items"`
	Judgments []JudgmentRecord      `yaml:"judgments,omitempty"`
}

// JudgmentRecord is a ModelJudgment keyed by item.
type JudgmentRecord struct {
	ItemID              string `yaml:"item_id"`
	types.ModelJudgment `yaml:",inline"`
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	Files     int
	Skipped   int
	Failed    int
	Items     int
	Judgments int
}

// Ingest reads every *.yaml batch in dir and upserts its items and
// judgments. Files whose modification time matches the last ingest are
// skipped. Progress lines go to w; a bad file is reported and counted but
// does not stop the run.
func (s *Store) Ingest(ctx context.Context, dir string, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading feeds directory %s: %w", dir, err)
	}

	var summary IngestSummary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var stored string
		err = s.db.QueryRowContext(ctx, `SELECT file_mod_time FROM ingest_status WHERE file = ?`, name).Scan(&stored)
		if err == nil && stored == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		var batch Batch
		if err := yaml.Unmarshal(data, &batch); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", name, err)
			summary.Failed++
			continue
		}

		if err := s.ingestBatch(ctx, name, modTime, &batch); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "ingested %s (%d items, %d judgments)\n", name, len(batch.Items), len(batch.Judgments))
		summary.Files++
		summary.Items += len(batch.Items)
		summary.Judgments += len(batch.Judgments)
	}

	fmt.Fprintf(w, "\nfiles: %d, items: %d, judgments: %d, skipped: %d, failed: %d\n",
		summary.Files, summary.Items, summary.Judgments, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) ingestBatch(ctx context.Context, file, modTime string, batch *Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range batch.Items {
		it := batch.Items[i]
		if it.SourceName == "" {
			it.SourceName = batch.Source
		}
		if err := validateItem(it); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if err := upsertItem(ctx, tx, it); err != nil {
			return err
		}
	}

	for _, j := range batch.Judgments {
		if err := upsertJudgment(ctx, tx, j); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_status (file, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(file) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		file, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}
	return tx.Commit()
}

// SaveItems upserts items outside of a batch file.
func (s *Store) SaveItems(ctx context.Context, items []types.CandidateItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, it := range items {
		if err := validateItem(it); err != nil {
			return err
		}
		if err := upsertItem(ctx, tx, it); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveJudgments upserts judgments keyed by item ID.
func (s *Store) SaveJudgments(ctx context.Context, judgments map[string]types.ModelJudgment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for id, j := range judgments {
		if err := upsertJudgment(ctx, tx, JudgmentRecord{ItemID: id, ModelJudgment: j}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func validateItem(it types.CandidateItem) error {
	switch {
	case it.ID == "":
		return fmt.Errorf("missing id")
	case it.Title == "":
		return fmt.Errorf("item %s: missing title", it.ID)
	case it.Category == "":
		return fmt.Errorf("item %s: missing category", it.ID)
	case it.PublishedAt.IsZero():
		return fmt.Errorf("item %s: missing published_at", it.ID)
	}
	return nil
}

func upsertItem(ctx context.Context, db execer, it types.CandidateItem) error {
	categories, _ := json.Marshal(it.Categories)
	query, args, err := sq.Insert("items").
		Columns("id", "source_name", "title", "url", "published_at", "summary", "snippet", "full_text", "category", "categories").
		Values(it.ID, it.SourceName, it.Title, strings.TrimSpace(it.URL), it.PublishedAt.UTC().Format(timeLayout),
			plainText(it.Summary), plainText(it.Snippet), it.FullText, it.Category, string(categories)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			source_name=excluded.source_name, title=excluded.title, url=excluded.url,
			published_at=excluded.published_at, summary=excluded.summary, snippet=excluded.snippet,
			full_text=excluded.full_text, category=excluded.category, categories=excluded.categories`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building item insert: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting item %s: %w", it.ID, err)
	}
	return nil
}

func upsertJudgment(ctx context.Context, db execer, j JudgmentRecord) error {
	if j.ItemID == "" {
		return fmt.Errorf("judgment missing item_id")
	}
	if j.Relevance < 0 || j.Relevance > 10 || j.Usefulness < 0 || j.Usefulness > 10 {
		return fmt.Errorf("judgment for %s out of range: relevance=%v usefulness=%v", j.ItemID, j.Relevance, j.Usefulness)
	}
	tags, _ := json.Marshal(j.Tags)
	query, args, err := sq.Insert("judgments").
		Columns("item_id", "relevance", "usefulness", "tags").
		Values(j.ItemID, j.Relevance, j.Usefulness, string(tags)).
		Suffix(`ON CONFLICT(item_id) DO UPDATE SET
			relevance=excluded.relevance, usefulness=excluded.usefulness, tags=excluded.tags`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building judgment insert: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting judgment %s: %w", j.ItemID, err)
	}
	return nil
}

// plainText flattens feed HTML to whitespace-normalized text. Text with no
// markup is returned as is.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
