// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package digest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// Filename returns the conventional file name for d:
// {category}-{period}-{yyyy-mm-dd}.yaml.
func Filename(d types.Digest) string {
	return fmt.Sprintf("%s-%s-%s.yaml", d.Category, d.Period, d.GeneratedAt.UTC().Format("2006-01-02"))
}

// WriteFile saves d as YAML at path, creating parent directories.
func WriteFile(path string, d types.Digest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating digest directory: %w", err)
	}
	data, err := yaml.Marshal(&d)
	if err != nil {
		return fmt.Errorf("marshaling digest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing digest %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a digest saved by WriteFile.
func ReadFile(path string) (types.Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Digest{}, fmt.Errorf("reading digest %s: %w", path, err)
	}
	var d types.Digest
	if err := yaml.Unmarshal(data, &d); err != nil {
		return types.Digest{}, fmt.Errorf("parsing digest %s: %w", path, err)
	}
	return d, nil
}

// FormatTable writes d as a human-readable table to w.
func FormatTable(d types.Digest, w io.Writer) {
	fmt.Fprintf(w, "%s (%s, last %d days)\n", d.Category, d.Period, d.WindowDays)
	if d.IsEmpty() {
		fmt.Fprintf(w, "Nothing met the bar this period (%d candidates).\n", d.Candidates)
		return
	}

	fmt.Fprintf(w, "%-4s  %-56s  %-20s  %-10s  %s\n", "Rank", "Title", "Source", "Published", "Score")
	fmt.Fprintln(w, strings.Repeat("-", 104))
	for i, it := range d.Items {
		fmt.Fprintf(w, "%-4d  %-56s  %-20s  %-10s  %.3f\n",
			i+1, truncate(it.Title, 56), truncate(it.SourceName, 20), it.PublishedAt.Format("2006-01-02"), it.FinalScore)
	}

	fmt.Fprintf(w, "\n%d of %d candidates, threshold %d", len(d.Items), d.Candidates, d.Threshold)
	if d.Relaxed {
		fmt.Fprint(w, ", source cap relaxed")
	}
	fmt.Fprintln(w)
}

// FormatReasons writes the per-item reasons of d to w, sorted by item ID.
func FormatReasons(d types.Digest, w io.Writer) {
	ids := make([]string, 0, len(d.Reasons))
	for id := range d.Reasons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "%s: %s\n", id, d.Reasons[id])
	}
}

// FormatJSON writes d as indented JSON to w.
func FormatJSON(d types.Digest, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
