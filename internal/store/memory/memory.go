// Package memory is an in-memory implementation of the document, posting
// and rank stores. It backs unit tests and single-process runs; failures
// can be injected per word or per operation.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
)

var errInjected = errors.New("injected failure")

// Store keeps documents, postings and ranks in maps guarded by one lock.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*document.Document
	postings map[string]index.PostingEntry

	failWords   map[string]bool
	failContent map[string]bool
	failRanks   bool
}

func New() *Store {
	return &Store{
		docs:        make(map[string]*document.Document),
		postings:    make(map[string]index.PostingEntry),
		failWords:   make(map[string]bool),
		failContent: make(map[string]bool),
	}
}

// FailWords makes MergePostings fail for the given words.
func (s *Store) FailWords(words ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range words {
		s.failWords[w] = true
	}
}

// FailContent makes GetDocumentContent fail for the given pages.
func (s *Store) FailContent(pageIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range pageIDs {
		s.failContent[id] = true
	}
}

// FailRanks makes WriteRanks fail while set.
func (s *Store) FailRanks(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRanks = fail
}

// ClearFailures removes every injected failure.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWords = make(map[string]bool)
	s.failContent = make(map[string]bool)
	s.failRanks = false
}

// SaveDocument upserts doc by ID. An existing rank is kept.
func (s *Store) SaveDocument(_ context.Context, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := doc
	cp.Outlinks = append([]string(nil), doc.Outlinks...)
	cp.Words = append([]string(nil), doc.Words...)
	cp.Headers = nil
	if existing, ok := s.docs[doc.ID]; ok {
		cp.Rank = existing.Rank
	}
	s.docs[doc.ID] = &cp
	return nil
}

// ListKnownDocuments returns every document ordered by ID.
func (s *Store) ListKnownDocuments(_ context.Context) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]document.Document, 0, len(s.docs))
	for _, d := range s.docs {
		cp := *d
		cp.Outlinks = append([]string(nil), d.Outlinks...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetPageWords(_ context.Context, pageID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[pageID]
	if !ok {
		return nil, fmt.Errorf("page words %s: %w", pageID, apperrors.ErrDocumentNotFound)
	}
	return append([]string(nil), d.Words...), nil
}

func (s *Store) GetDocumentContent(_ context.Context, pageID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failContent[pageID] {
		return "", fmt.Errorf("get content %s: %w", pageID, errInjected)
	}
	d, ok := s.docs[pageID]
	if !ok {
		return "", fmt.Errorf("get content %s: %w", pageID, apperrors.ErrDocumentNotFound)
	}
	return d.RawContent, nil
}

func (s *Store) GetPageTokenCount(_ context.Context, pageID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[pageID]
	if !ok {
		return 0, fmt.Errorf("token count %s: %w", pageID, apperrors.ErrDocumentNotFound)
	}
	return d.TokenCount, nil
}

// GetPageStats returns stats for the known pages among pageIDs; unknown IDs
// are absent from the map.
func (s *Store) GetPageStats(_ context.Context, pageIDs []string) (map[string]document.PageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]document.PageStats, len(pageIDs))
	for _, id := range pageIDs {
		if d, ok := s.docs[id]; ok {
			out[id] = document.PageStats{
				ID:         d.ID,
				URL:        d.URL,
				Title:      d.Title,
				TokenCount: d.TokenCount,
				Rank:       d.Rank,
			}
		}
	}
	return out, nil
}

func (s *Store) CountDocuments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// FindPostings returns the stored entries for the words that have one.
func (s *Store) FindPostings(_ context.Context, words []string) ([]index.PostingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]index.PostingEntry, 0, len(words))
	for _, w := range words {
		if e, ok := s.postings[w]; ok {
			out = append(out, copyEntry(e))
		}
	}
	return out, nil
}

// MergePostings merges every word under the store lock, so concurrent
// merges never interleave. Injected word failures produce a
// PartialWriteError; the other words are still written.
func (s *Store) MergePostings(_ context.Context, words []string, merge index.MergeFunc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []string
	written := 0
	for _, w := range words {
		if s.failWords[w] {
			failed = append(failed, w)
			continue
		}
		var stored *index.PostingEntry
		if e, ok := s.postings[w]; ok {
			cp := copyEntry(e)
			stored = &cp
		}
		next, changed := merge(w, stored)
		if !changed {
			continue
		}
		if len(next.Pages) == 0 {
			delete(s.postings, w)
		} else {
			next.Word = w
			s.postings[w] = copyEntry(next)
		}
		written++
	}
	if len(failed) > 0 {
		return written, &apperrors.PartialWriteError{
			Op:        "merge postings",
			Attempted: len(words),
			Succeeded: written,
			Failed:    failed,
			Cause:     errInjected,
		}
	}
	return written, nil
}

// WriteRanks sets the rank of every listed page in one step. Either all
// ranks change or none do.
func (s *Store) WriteRanks(_ context.Context, ranks map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRanks {
		return fmt.Errorf("write ranks: %w", errInjected)
	}
	for id, r := range ranks {
		if d, ok := s.docs[id]; ok {
			d.Rank = r
		}
	}
	return nil
}

// Posting returns the stored entry for word.
func (s *Store) Posting(word string) (index.PostingEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.postings[word]
	if !ok {
		return index.PostingEntry{}, false
	}
	return copyEntry(e), true
}

func copyEntry(e index.PostingEntry) index.PostingEntry {
	out := index.PostingEntry{Word: e.Word, PageCount: e.PageCount, Pages: make([]index.PageReference, len(e.Pages))}
	for i, ref := range e.Pages {
		cp := index.PageReference{
			PageID:    ref.PageID,
			Positions: append([]int(nil), ref.Positions...),
		}
		if len(ref.Fields) > 0 {
			cp.Fields = make(map[document.Field]int, len(ref.Fields))
			for f, n := range ref.Fields {
				cp.Fields[f] = n
			}
		}
		out.Pages[i] = cp
	}
	return out
}
