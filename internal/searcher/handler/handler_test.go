package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/metrics"
)

type stubExecutor struct {
	lastLimit int
	result    *executor.SearchResult
	err       error
}

func (s *stubExecutor) Search(_ context.Context, q string, limit int) (*executor.SearchResult, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &executor.SearchResult{Query: q, Results: []executor.Result{}}, nil
}

func TestSearchValidation(t *testing.T) {
	h := New(&stubExecutor{}, nil, nil, 10, 50)
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"bad limit", "/api/v1/search?q=go&limit=abc", http.StatusBadRequest},
		{"zero limit", "/api/v1/search?q=go&limit=0", http.StatusBadRequest},
		{"ok", "/api/v1/search?q=go", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Search(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestSearchEmptyQueryReturnsNoResults(t *testing.T) {
	exec := &stubExecutor{err: errors.New("must not be called")}
	h := New(exec, nil, nil, 10, 50)

	for _, target := range []string{"/api/v1/search", "/api/v1/search?q=", "/api/v1/search?q=%20%20"} {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code, target)

		var body executor.SearchResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Empty(t, body.Results, target)
		assert.Zero(t, body.TotalHits, target)
		assert.NotContains(t, rec.Body.String(), `"results":null`)
	}
	assert.Zero(t, exec.lastLimit, "executor is not consulted")
}

func TestSearchClampsLimit(t *testing.T) {
	exec := &stubExecutor{}
	h := New(exec, nil, nil, 10, 50)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=go&limit=500", nil))
	assert.Equal(t, 50, exec.lastLimit)

	h.Search(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search?q=go", nil))
	assert.Equal(t, 10, exec.lastLimit)
}

func TestSearchResponseAndMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	exec := &stubExecutor{result: &executor.SearchResult{
		Query:     `"data science"`,
		IsPhrase:  true,
		TotalHits: 1,
		Results:   []executor.Result{{PageID: "p1", URL: "https://learn.example/", Score: 0.4, Snippet: "learn data science"}},
	}}
	h := New(exec, nil, m, 10, 50)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=%22data+science%22", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body executor.SearchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.IsPhrase)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "learn data science", body.Results[0].Snippet)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("phrase")))
}

func TestSearchExecutorError(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := New(&stubExecutor{err: errors.New("db down")}, nil, m, 10, 50)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=go", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("error")))
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	h := New(&stubExecutor{}, nil, nil, 10, 50)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
