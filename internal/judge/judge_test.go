// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/digest-engine/internal/httputil"
	"github.com/pdiddy/digest-engine/internal/logging"
	"github.com/pdiddy/digest-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// fakeService judges every id whose name starts with "j" and records the
// batches it was asked for.
type fakeService struct {
	mu      sync.Mutex
	batches [][]string
	auth    []string
	fail    int
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method != http.MethodPost || r.URL.Path != "/judgments" {
		http.NotFound(w, r)
		return
	}
	if f.fail > 0 {
		f.fail--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	var req judgmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.batches = append(f.batches, req.IDs)

	resp := judgmentResponse{Judgments: map[string]types.ModelJudgment{}}
	for _, id := range req.IDs {
		switch {
		case id == "bogus":
			resp.Judgments[id] = types.ModelJudgment{Relevance: 42, Usefulness: 1}
		case id[0] == 'j':
			resp.Judgments[id] = types.ModelJudgment{Relevance: 7, Usefulness: 5, Tags: []string{"code-search"}}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func testClient(ts *httptest.Server, batch int) *Client {
	c := New(types.JudgeConfig{Endpoint: ts.URL + "/", BatchSize: batch, MaxRetries: 2}, "jk_test")
	c.HTTP = ts.Client()
	c.Logger = logging.Discard()
	return c
}

func TestLoadJudgments(t *testing.T) {
	svc := &fakeService{}
	ts := httptest.NewServer(svc)
	defer ts.Close()

	got, err := testClient(ts, 2).LoadJudgments(context.Background(), []string{"j1", "x2", "j3", "bogus", "j5"})
	require.NoError(t, err)

	assert.Len(t, got, 3)
	assert.Contains(t, got, "j1")
	assert.NotContains(t, got, "x2", "unjudged ids are absent")
	assert.NotContains(t, got, "bogus", "out-of-range judgments are dropped")
	assert.Equal(t, []string{"code-search"}, got["j5"].Tags)

	assert.Equal(t, [][]string{{"j1", "x2"}, {"j3", "bogus"}, {"j5"}}, svc.batches)
	for _, a := range svc.auth {
		assert.Equal(t, "Bearer jk_test", a)
	}
}

func TestLoadJudgmentsRetriesUnavailable(t *testing.T) {
	svc := &fakeService{fail: 1}
	ts := httptest.NewServer(svc)
	defer ts.Close()

	got, err := testClient(ts, 10).LoadJudgments(context.Background(), []string{"j1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, svc.batches, 1, "the replayed body reached the service intact")
}

func TestLoadJudgmentsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "bad token")
	}))
	defer ts.Close()

	_, err := testClient(ts, 10).LoadJudgments(context.Background(), []string{"j1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.Contains(t, err.Error(), "bad token")
}

func TestLoadJudgmentsEmptyIDs(t *testing.T) {
	svc := &fakeService{}
	ts := httptest.NewServer(svc)
	defer ts.Close()

	got, err := testClient(ts, 10).LoadJudgments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, svc.batches)
}

func TestLoadJudgmentsRequiresEndpoint(t *testing.T) {
	_, err := New(types.JudgeConfig{}, "").LoadJudgments(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}
