// Package indexer runs the indexing workflow: extracted pages are saved,
// tokenized into a batch buffer and flushed into the posting store every
// BatchSize pages.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/resilience"
)

// FlushFunc is called after every flush that left nothing behind.
type FlushFunc func(ctx context.Context, report index.FlushReport)

// Engine owns one batch buffer. Its methods are safe for concurrent use but
// pages are indexed one at a time.
type Engine struct {
	mu       sync.Mutex
	tok      *tokenizer.Tokenizer
	batch    *index.Builder
	docs     document.Sink
	postings index.PostingStore
	cfg      config.IndexerConfig
	metrics  *metrics.Metrics
	onFlush  []FlushFunc
	pending  int
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records pages, flushes and postings in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithFlushHook calls fn after each flush that persisted the whole batch,
// including flushes of an empty batch. Hooks run in the order given while
// no page can enter the batch, so everything indexed before the hook runs
// is already in the posting store.
func WithFlushHook(fn FlushFunc) Option {
	return func(e *Engine) { e.onFlush = append(e.onFlush, fn) }
}

func NewEngine(tok *tokenizer.Tokenizer, docs document.Sink, postings index.PostingStore, cfg config.IndexerConfig, opts ...Option) *Engine {
	e := &Engine{
		tok:      tok,
		batch:    index.NewBuilder(),
		docs:     docs,
		postings: postings,
		cfg:      cfg,
		logger:   slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IndexDocument tokenizes doc into a page-local buffer, saves the document
// with its kept-token count and word set and moves the page's postings into
// the batch. When the page was indexed before, the words it no longer holds
// are retracted so the flush drops the page from their postings. A page
// already waiting in the batch is skipped so a redelivered event cannot
// double its positions. Reaching BatchSize pending pages triggers a flush.
func (e *Engine) IndexDocument(ctx context.Context, doc document.Document) error {
	if doc.ID == "" {
		doc.ID = document.PageID(doc.URL)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.batch.HasPage(doc.ID) {
		e.logger.Debug("page already buffered, skipping", "page_id", doc.ID)
		return nil
	}

	page := index.NewBuilder()
	doc.TokenCount = e.tok.TokenizeContent(doc.RawContent, doc.ID, page)
	e.tok.TokenizeHeaders(doc.Headers, doc.ID, page)
	doc.Words = page.Words()

	previous, err := e.docs.GetPageWords(ctx, doc.ID)
	if err != nil && !errors.Is(err, apperrors.ErrDocumentNotFound) {
		return fmt.Errorf("loading indexed words of %s: %w", doc.ID, err)
	}
	stale := staleWords(previous, doc.Words)
	for _, word := range stale {
		page.Retract(word, doc.ID)
	}

	if err := e.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	e.batch.Merge(page)
	e.pending++
	if e.metrics != nil {
		e.metrics.PagesIndexedTotal.Inc()
	}
	e.logger.Debug("page indexed",
		"page_id", doc.ID,
		"url", doc.URL,
		"token_count", doc.TokenCount,
		"words", page.Len(),
		"retracted", len(stale),
	)

	if e.pending >= e.cfg.BatchSize {
		if _, err := e.flushLocked(ctx); err != nil {
			return fmt.Errorf("flushing batch: %w", err)
		}
	}
	return nil
}

// Flush writes the batch buffer to the posting store, retrying transient
// failures. Consistency failures are not retried.
func (e *Engine) Flush(ctx context.Context) (index.FlushReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked(ctx)
}

func (e *Engine) flushLocked(ctx context.Context) (index.FlushReport, error) {
	if e.batch.Empty() {
		e.pending = 0
		e.runHooks(ctx, index.FlushReport{})
		return index.FlushReport{}, nil
	}
	start := time.Now()
	var total index.FlushReport
	err := resilience.Retry(ctx, "index-flush", resilience.RetryConfig{MaxAttempts: e.cfg.FlushRetries}, func() error {
		report, err := e.batch.Flush(ctx, e.postings)
		total.Words += report.Words
		total.NewWords += report.NewWords
		total.MergedWords += report.MergedWords
		total.Pruned += report.Pruned
		total.Unchanged += report.Unchanged
		total.Written += report.Written
		if total.Pages == 0 {
			total.Pages = report.Pages
		}
		if errors.Is(err, apperrors.ErrIndexConsistency) {
			return resilience.Permanent(err)
		}
		return err
	})

	status := "ok"
	switch {
	case err == nil:
		e.pending = 0
	case errors.Is(err, apperrors.ErrPartialBulkWrite):
		status = "partial"
	default:
		status = "error"
	}
	if e.metrics != nil {
		e.metrics.IndexFlushesTotal.WithLabelValues(status).Inc()
		e.metrics.PostingsWrittenTotal.Add(float64(total.Written))
	}
	e.logger.Info("index flush",
		"status", status,
		"pages", total.Pages,
		"new_words", total.NewWords,
		"merged_words", total.MergedWords,
		"pruned_words", total.Pruned,
		"written", total.Written,
		"remaining_words", e.batch.Len(),
		"duration", time.Since(start),
	)
	if err == nil {
		e.runHooks(ctx, total)
	}
	return total, err
}

func (e *Engine) runHooks(ctx context.Context, report index.FlushReport) {
	for _, fn := range e.onFlush {
		fn(ctx, report)
	}
}

// staleWords returns the words of previous missing from current.
func staleWords(previous, current []string) []string {
	if len(previous) == 0 {
		return nil
	}
	kept := make(map[string]struct{}, len(current))
	for _, w := range current {
		kept[w] = struct{}{}
	}
	var out []string
	for _, w := range previous {
		if _, ok := kept[w]; !ok {
			out = append(out, w)
		}
	}
	return out
}

// StartFlushLoop flushes the batch every FlushInterval until ctx is done,
// then performs a final flush bounded by finalTimeout. The returned channel
// closes once the final flush has finished. Ticks with nothing buffered
// still run the flush hooks.
func (e *Engine) StartFlushLoop(ctx context.Context, finalTimeout time.Duration) <-chan struct{} {
	done := make(chan struct{})
	interval := e.cfg.FlushInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final flush", "pending", e.Pending())
				flushCtx, cancel := context.WithTimeout(context.Background(), finalTimeout)
				if _, err := e.Flush(flushCtx); err != nil {
					e.logger.Error("final flush failed", "error", err)
				}
				cancel()
				return
			case <-ticker.C:
				if _, err := e.Flush(ctx); err != nil {
					e.logger.Error("periodic flush failed", "error", err)
				}
			}
		}
	}()
	return done
}

// Pending returns the number of pages indexed since the last full flush.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}
