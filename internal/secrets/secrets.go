// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file holds one secret: the filename is the key and the trimmed
// contents are the value. An environment variable DIGEST_ENGINE_<KEY>
// (uppercased, dashes as underscores) overrides the file.
//
// Known keys: judge-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// JudgeAPIKey names the bearer token sent to the remote judgment service.
const JudgeAPIKey = "judge-api-key"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "DIGEST_ENGINE_"

// Secrets is a read-only set of loaded credentials.
type Secrets struct {
	values map[string]string
	getenv func(string) string
}

// Load reads every file in dir. A missing directory yields an empty set.
// Unreadable files are logged and skipped.
func Load(dir string) (*Secrets, error) {
	s := &Secrets{values: make(map[string]string), getenv: os.Getenv}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "key", name, "err", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s.values[name] = value
		}
	}
	return s, nil
}

// Lookup returns the value for key, preferring the environment override.
func (s *Secrets) Lookup(key string) (string, bool) {
	getenv := os.Getenv
	if s != nil && s.getenv != nil {
		getenv = s.getenv
	}
	if v := strings.TrimSpace(getenv(EnvName(key))); v != "" {
		return v, true
	}
	if s == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Keys lists the file-backed keys in sorted order. Values are never listed.
func (s *Secrets) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}
