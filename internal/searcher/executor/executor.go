// Package executor answers a search query: tokenize, fetch candidates,
// verify phrases, rank and attach snippets.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/phrase"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/logger"
)

// Result is one returned page.
type Result struct {
	PageID  string  `json:"page_id"`
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type SearchResult struct {
	Query     string   `json:"query"`
	IsPhrase  bool     `json:"is_phrase"`
	TotalHits int      `json:"total_hits"`
	Results   []Result `json:"results"`
}

type Executor struct {
	tok      *tokenizer.Tokenizer
	proc     *query.Processor
	postings index.PostingStore
	docs     document.Source
	cfg      config.SearchConfig
	logger   *slog.Logger
}

func New(tok *tokenizer.Tokenizer, postings index.PostingStore, docs document.Source, cfg config.SearchConfig) *Executor {
	return &Executor{
		tok:      tok,
		proc:     query.NewProcessor(tok),
		postings: postings,
		docs:     docs,
		cfg:      cfg,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// Tokenize exposes the query model used by Search.
func (e *Executor) Tokenize(q string) query.Model {
	return e.proc.Tokenize(q)
}

// Search runs q and returns at most limit results; a non-positive limit
// uses the configured default. A query with no searchable tokens returns an
// empty result, not an error.
func (e *Executor) Search(ctx context.Context, q string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if e.cfg.MaxResults > 0 && limit > e.cfg.MaxResults {
		limit = e.cfg.MaxResults
	}
	log := logger.FromContext(ctx).With("component", "query-executor")

	model := e.proc.Tokenize(q)
	out := &SearchResult{Query: q, IsPhrase: model.IsPhrase, Results: []Result{}}
	if model.Empty() {
		return out, nil
	}

	entries, err := e.proc.RetrieveCandidates(ctx, e.postings, model.StemmedTokens)
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}
	candidates := make(map[string][]index.PageReference, len(entries))
	docFreq := make(map[string]int, len(entries))
	pageSet := make(map[string]struct{})
	for token, entry := range entries {
		docFreq[token] = entry.PageCount
		if len(entry.Pages) == 0 {
			continue
		}
		candidates[token] = entry.Pages
		for _, ref := range entry.Pages {
			pageSet[ref.PageID] = struct{}{}
		}
	}
	if len(pageSet) == 0 {
		return out, nil
	}

	pageIDs := make([]string, 0, len(pageSet))
	for id := range pageSet {
		pageIDs = append(pageIDs, id)
	}
	sort.Strings(pageIDs)
	stats, err := e.docs.GetPageStats(ctx, pageIDs)
	if err != nil {
		return nil, fmt.Errorf("loading page stats: %w", err)
	}
	totalDocs, err := e.docs.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	bodies := newBodyCache(e.tok, e.docs)
	for token, refs := range candidates {
		kept := make([]index.PageReference, 0, len(refs))
		for _, ref := range refs {
			if _, known := stats[ref.PageID]; !known {
				log.Debug("dropping candidate without document", "page_id", ref.PageID)
				continue
			}
			if model.IsPhrase && !e.phraseHit(ctx, bodies, model, token, ref) {
				continue
			}
			kept = append(kept, ref)
		}
		if len(kept) == 0 {
			delete(candidates, token)
			continue
		}
		candidates[token] = kept
	}

	params := ranker.ParamsFromConfig(e.cfg)
	params.TotalDocs = totalDocs
	ranked := ranker.Rank(candidates, docFreq, stats, params)
	out.TotalHits = len(ranked)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for _, sp := range ranked {
		st := stats[sp.PageID]
		out.Results = append(out.Results, Result{
			PageID:  sp.PageID,
			URL:     st.URL,
			Title:   st.Title,
			Score:   sp.Score,
			Snippet: e.snippetFor(ctx, bodies, model, candidates, sp.PageID),
		})
	}
	log.Debug("query executed",
		"query", q,
		"tokens", model.StemmedTokens,
		"phrase", model.IsPhrase,
		"candidates", len(pageSet),
		"hits", out.TotalHits,
	)
	return out, nil
}

// phraseHit reports whether any position of ref sits inside the phrase.
// Pages whose content cannot be loaded never match.
func (e *Executor) phraseHit(ctx context.Context, bodies *bodyCache, model query.Model, token string, ref index.PageReference) bool {
	b, err := bodies.get(ctx, ref.PageID)
	if err != nil {
		e.logger.Warn("phrase check skipped, content unavailable", "page_id", ref.PageID, "error", err)
		return false
	}
	anchor := phrase.Anchor(model, token)
	for _, pos := range ref.Positions {
		if phrase.IsMatch(b.words, model.OriginalWords, anchor, pos) {
			return true
		}
	}
	return false
}

// snippetFor returns the excerpt around the first verified occurrence of
// the first query token found on the page. Content errors give "".
func (e *Executor) snippetFor(ctx context.Context, bodies *bodyCache, model query.Model, candidates map[string][]index.PageReference, pageID string) string {
	b, err := bodies.get(ctx, pageID)
	if err != nil {
		e.logger.Warn("snippet unavailable", "page_id", pageID, "error", err)
		return ""
	}
	for _, token := range model.StemmedTokens {
		for _, ref := range candidates[token] {
			if ref.PageID != pageID {
				continue
			}
			var verify func(int) bool
			if model.IsPhrase {
				anchor := phrase.Anchor(model, token)
				verify = func(pos int) bool {
					return phrase.IsMatch(b.words, model.OriginalWords, anchor, pos)
				}
			}
			if s, _, ok := snippet.Find(b.display, ref.Positions, verify, e.cfg.SnippetSize); ok {
				return s
			}
		}
	}
	return ""
}

// body is a page's raw token stream: lowercased for matching and as
// written for display.
type body struct {
	words   []string
	display []string
}

type bodyCache struct {
	tok   *tokenizer.Tokenizer
	docs  document.Source
	pages map[string]*body
	errs  map[string]error
}

func newBodyCache(tok *tokenizer.Tokenizer, docs document.Source) *bodyCache {
	return &bodyCache{
		tok:   tok,
		docs:  docs,
		pages: make(map[string]*body),
		errs:  make(map[string]error),
	}
}

func (c *bodyCache) get(ctx context.Context, pageID string) (*body, error) {
	if b, ok := c.pages[pageID]; ok {
		return b, nil
	}
	if err, ok := c.errs[pageID]; ok {
		return nil, err
	}
	content, err := c.docs.GetDocumentContent(ctx, pageID)
	if err != nil {
		c.errs[pageID] = err
		return nil, err
	}
	b := &body{}
	for rt := range c.tok.Tokenize(content) {
		b.words = append(b.words, rt.Lower())
		b.display = append(b.display, rt.Text)
	}
	c.pages[pageID] = b
	return b, nil
}
