package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/kafka"
)

type countingWriter struct{ n int }

func (w *countingWriter) Publish(_ context.Context, events ...kafka.Event) error {
	w.n += len(events)
	return nil
}

func TestSubmitPage(t *testing.T) {
	w := &countingWriter{}
	h := New(publisher.New(w))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"accepted", `{"url":"https://example.com/x","html":"<p>hi</p>"}`, http.StatusAccepted},
		{"bad json", `{`, http.StatusBadRequest},
		{"invalid page", `{"url":"nope","html":""}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/pages", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.SubmitPage(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
	assert.Equal(t, 1, w.n)
}

func TestSubmitPageValidationFields(t *testing.T) {
	h := New(publisher.New(&countingWriter{}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pages", strings.NewReader(`{"url":"","html":"x"}`))
	rec := httptest.NewRecorder()
	h.SubmitPage(rec, req)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "url")
}
