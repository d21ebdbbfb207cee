// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judge fetches precomputed model judgments from a remote judgment
// service. The service is read-only from this side: it returns the stored
// relevance, usefulness, and tags for the ids it has judged and omits the
// rest.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/digest-engine/internal/httputil"
	"github.com/pdiddy/digest-engine/pkg/types"
)

const (
	defaultBatchSize = 100
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "digest-engine"
)

// Client calls POST {Endpoint}/judgments.
type Client struct {
	HTTP       *http.Client
	Endpoint   string
	APIKey     string
	BatchSize  int
	MaxRetries int
	UserAgent  string
	Logger     *slog.Logger
}

type judgmentRequest struct {
	IDs []string `json:"ids"`
}

type judgmentResponse struct {
	Judgments map[string]types.ModelJudgment `json:"judgments"`
}

// New builds a Client from configuration. apiKey may be empty for
// unauthenticated services.
func New(cfg types.JudgeConfig, apiKey string) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		Endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		APIKey:     apiKey,
		BatchSize:  cfg.BatchSize,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  cfg.UserAgent,
		Logger:     slog.Default(),
	}
}

// LoadJudgments returns judgments for ids, requesting them in batches.
// Ids the service has not judged are absent from the map. Judgments with
// scores outside 0-10 are dropped and logged.
func (c *Client) LoadJudgments(ctx context.Context, ids []string) (map[string]types.ModelJudgment, error) {
	if c.Endpoint == "" {
		return nil, &types.ConfigError{Reason: "judge endpoint is not configured"}
	}
	size := c.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	out := make(map[string]types.ModelJudgment, len(ids))
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batch, err := c.fetch(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("judgments %d-%d of %d: %w", start+1, end, len(ids), err)
		}
		for id, j := range batch {
			if !inRange(j.Relevance) || !inRange(j.Usefulness) {
				c.logger().Warn("dropping out-of-range judgment", "item", id, "relevance", j.Relevance, "usefulness", j.Usefulness)
				continue
			}
			out[id] = j
		}
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, ids []string) (map[string]types.ModelJudgment, error) {
	body, err := json.Marshal(judgmentRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/judgments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	ua := c.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("judge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("judge service returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var jr judgmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		return nil, fmt.Errorf("parsing judge response: %w", err)
	}
	return jr.Judgments, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func inRange(v float64) bool {
	return v >= 0 && v <= 10
}
