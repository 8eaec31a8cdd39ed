package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion"
)

type recordingIndexer struct {
	docs []document.Document
	err  error
}

func (r *recordingIndexer) IndexDocument(_ context.Context, doc document.Document) error {
	if r.err != nil {
		return r.err
	}
	r.docs = append(r.docs, doc)
	return nil
}

func encode(t *testing.T, ev ingestion.PageCrawledEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleMessage(t *testing.T) {
	idx := &recordingIndexer{}
	handle := HandleMessage(idx)

	err := handle(context.Background(), nil, encode(t, ingestion.PageCrawledEvent{
		EventID: "e1",
		URL:     "https://example.com/",
		HTML:    `<html><head><title>Home</title></head><body><a href="/about">About</a></body></html>`,
	}))
	require.NoError(t, err)
	require.Len(t, idx.docs, 1)
	assert.Equal(t, "Home", idx.docs[0].Title)
	assert.Equal(t, []string{"https://example.com/about"}, idx.docs[0].Outlinks)
}

func TestHandleMessageSkipsBadEvents(t *testing.T) {
	idx := &recordingIndexer{}
	handle := HandleMessage(idx)

	assert.NoError(t, handle(context.Background(), nil, []byte("{not json")))
	assert.NoError(t, handle(context.Background(), nil, encode(t, ingestion.PageCrawledEvent{URL: "relative", HTML: "x"})))
	assert.Empty(t, idx.docs)
}

func TestHandleMessageReturnsIndexError(t *testing.T) {
	idx := &recordingIndexer{err: errors.New("store down")}
	err := HandleMessage(idx)(context.Background(), nil, encode(t, ingestion.PageCrawledEvent{
		URL:  "https://example.com/",
		HTML: "<p>x</p>",
	}))
	assert.Error(t, err)
}

func TestBuildDocumentOverrides(t *testing.T) {
	doc, err := BuildDocument(&ingestion.PageCrawledEvent{
		URL:      "https://example.com/a",
		HTML:     `<title>Old</title><h2>Sub</h2><a href="/ignored">x</a>`,
		Title:    "New",
		Outlinks: []string{"https://Example.com/b/", "https://example.com/b", "https://example.com/c#frag"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New", doc.Title)
	assert.Equal(t, []document.Header{
		{Field: document.FieldTitle, Text: "New"},
		{Field: document.FieldH2, Text: "Sub"},
	}, doc.Headers)
	assert.Equal(t, []string{"https://example.com/b", "https://example.com/c"}, doc.Outlinks)
}

func TestBuildDocumentAddsCrawlerTitle(t *testing.T) {
	doc, err := BuildDocument(&ingestion.PageCrawledEvent{
		URL:   "https://example.com/a",
		HTML:  `<h1>Head</h1>`,
		Title: "Given",
	})
	require.NoError(t, err)
	assert.Equal(t, document.FieldTitle, doc.Headers[0].Field)
	assert.Equal(t, "Given", doc.Headers[0].Text)
	assert.Equal(t, document.FieldH1, doc.Headers[1].Field)
}
