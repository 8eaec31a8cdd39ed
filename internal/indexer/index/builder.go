// Package index buffers the postings of one indexing batch and merges them
// into the persistent posting store.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
)

type bufferedEntry struct {
	entry PostingEntry
	refs  map[string]int
}

// Builder is the in-memory buffer of one batch. It is owned by a single
// indexing workflow and is not safe for concurrent use.
type Builder struct {
	entries map[string]*bufferedEntry
	pages   map[string]struct{}
	// retracted maps a word to the pages whose stored references for it
	// are removed on flush.
	retracted map[string]map[string]struct{}
	logger    *slog.Logger
}

func NewBuilder() *Builder {
	return &Builder{
		entries:   make(map[string]*bufferedEntry),
		pages:     make(map[string]struct{}),
		retracted: make(map[string]map[string]struct{}),
		logger:    slog.Default().With("component", "index-builder"),
	}
}

// FlushReport summarizes one Flush. Pruned counts stored words that lost a
// retracted page and nothing else.
type FlushReport struct {
	Words       int
	NewWords    int
	MergedWords int
	Pruned      int
	Unchanged   int
	Written     int
	Pages       int
}

// AddOccurrence appends position to the reference for (word, pageID),
// creating the entry and the reference on first sight.
func (b *Builder) AddOccurrence(word, pageID string, position int) {
	be, ok := b.entries[word]
	if !ok {
		be = &bufferedEntry{
			entry: PostingEntry{Word: word},
			refs:  make(map[string]int),
		}
		b.entries[word] = be
	}
	idx, ok := be.refs[pageID]
	if !ok {
		be.entry.Pages = append(be.entry.Pages, PageReference{PageID: pageID})
		idx = len(be.entry.Pages) - 1
		be.refs[pageID] = idx
		be.entry.PageCount++
	}
	ref := &be.entry.Pages[idx]
	ref.Positions = append(ref.Positions, position)
	b.pages[pageID] = struct{}{}
}

// AddFieldOccurrence counts one occurrence of word in field for a reference
// that body tokenization already created. Without one it does nothing.
func (b *Builder) AddFieldOccurrence(word, pageID string, field document.Field) {
	be, ok := b.entries[word]
	if !ok {
		return
	}
	idx, ok := be.refs[pageID]
	if !ok {
		return
	}
	ref := &be.entry.Pages[idx]
	if ref.Fields == nil {
		ref.Fields = make(map[document.Field]int)
	}
	ref.Fields[field]++
}

// Retract removes pageID from the stored postings of word on the next
// flush. The engine uses it for words a re-indexed page no longer holds.
func (b *Builder) Retract(word, pageID string) {
	pages, ok := b.retracted[word]
	if !ok {
		pages = make(map[string]struct{})
		b.retracted[word] = pages
	}
	pages[pageID] = struct{}{}
	b.pages[pageID] = struct{}{}
}

// Merge moves every reference and retraction buffered in other into b.
// References for a (word, page) pair already present in b are skipped.
func (b *Builder) Merge(other *Builder) {
	for _, word := range other.Words() {
		src := other.entries[word]
		for _, ref := range src.entry.Pages {
			if dst, ok := b.entries[word]; ok {
				if _, dup := dst.refs[ref.PageID]; dup {
					continue
				}
			}
			b.addReference(word, ref.clone())
		}
	}
	for word, pages := range other.retracted {
		for pageID := range pages {
			b.Retract(word, pageID)
		}
	}
}

func (b *Builder) addReference(word string, ref PageReference) {
	be, ok := b.entries[word]
	if !ok {
		be = &bufferedEntry{entry: PostingEntry{Word: word}, refs: make(map[string]int)}
		b.entries[word] = be
	}
	be.entry.Pages = append(be.entry.Pages, ref)
	be.refs[ref.PageID] = len(be.entry.Pages) - 1
	be.entry.PageCount++
	b.pages[ref.PageID] = struct{}{}
}

// HasPage reports whether any reference or retraction for pageID is
// buffered.
func (b *Builder) HasPage(pageID string) bool {
	_, ok := b.pages[pageID]
	return ok
}

// Len returns the number of buffered words.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Pages returns the number of distinct buffered pages.
func (b *Builder) Pages() int {
	return len(b.pages)
}

// Empty reports whether a flush would have nothing to do.
func (b *Builder) Empty() bool {
	return len(b.entries) == 0 && len(b.retracted) == 0
}

// Retracted returns the number of buffered (word, page) retractions.
func (b *Builder) Retracted() int {
	n := 0
	for _, pages := range b.retracted {
		n += len(pages)
	}
	return n
}

// Words returns the words with buffered references in ascending order.
func (b *Builder) Words() []string {
	words := make([]string, 0, len(b.entries))
	for w := range b.entries {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Entry returns a copy of the buffered entry for word.
func (b *Builder) Entry(word string) (PostingEntry, bool) {
	be, ok := b.entries[word]
	if !ok {
		return PostingEntry{}, false
	}
	return copyEntry(be.entry), true
}

// Reset drops everything buffered.
func (b *Builder) Reset() {
	b.entries = make(map[string]*bufferedEntry)
	b.pages = make(map[string]struct{})
	b.retracted = make(map[string]map[string]struct{})
}

// Validate checks that no buffered entry counts more pages than it holds
// distinct references for.
func (b *Builder) Validate() error {
	for _, word := range b.Words() {
		be := b.entries[word]
		distinct := make(map[string]struct{}, len(be.entry.Pages))
		for _, ref := range be.entry.Pages {
			distinct[ref.PageID] = struct{}{}
		}
		if be.entry.PageCount > len(distinct) {
			return fmt.Errorf("%w: word %q counts %d pages but buffers %d",
				apperrors.ErrIndexConsistency, word, be.entry.PageCount, len(distinct))
		}
	}
	return nil
}

// Flush merges the buffer into store one word at a time. A word the store
// lacks is inserted whole. For a stored word, a buffered reference replaces
// the stored reference of the same page and is otherwise appended, and
// retracted pages are removed; the page count moves by the pages added
// minus the pages removed. Replacing a reference with an identical one is
// not a change, so re-flushing after a partial failure never double counts.
//
// On success the buffer is cleared. On a partial write only the words that
// were written leave the buffer, and the returned error wraps
// ErrPartialBulkWrite. Any other error leaves the buffer untouched.
func (b *Builder) Flush(ctx context.Context, store PostingStore) (FlushReport, error) {
	words := b.flushWords()
	report := FlushReport{Words: len(words), Pages: len(b.pages)}
	if len(words) == 0 {
		return report, nil
	}
	if err := b.Validate(); err != nil {
		return report, err
	}

	written, err := store.MergePostings(ctx, words, func(word string, stored *PostingEntry) (PostingEntry, bool) {
		out, result := b.mergeWord(word, stored)
		switch result {
		case mergeNew:
			report.NewWords++
		case mergeChanged:
			report.MergedWords++
		case mergePruned:
			report.Pruned++
		default:
			report.Unchanged++
		}
		return out, result != mergeUnchanged
	})
	report.Written = written
	if err != nil {
		var partial *apperrors.PartialWriteError
		if errors.As(err, &partial) {
			failed := make(map[string]struct{}, len(partial.Failed))
			for _, w := range partial.Failed {
				failed[w] = struct{}{}
			}
			b.retain(failed)
			b.logger.Warn("partial posting flush",
				"written", written,
				"failed", len(partial.Failed),
			)
			return report, err
		}
		return report, fmt.Errorf("merging postings: %w", err)
	}
	b.Reset()
	return report, nil
}

type mergeResult int

const (
	mergeUnchanged mergeResult = iota
	mergeNew
	mergeChanged
	mergePruned
)

func (b *Builder) mergeWord(word string, stored *PostingEntry) (PostingEntry, mergeResult) {
	var buffered []PageReference
	if be, ok := b.entries[word]; ok {
		buffered = be.entry.Pages
	}
	if stored == nil || len(stored.Pages) == 0 {
		if len(buffered) == 0 {
			return PostingEntry{}, mergeUnchanged
		}
		return copyEntry(b.entries[word].entry), mergeNew
	}

	incoming := make(map[string]PageReference, len(buffered))
	for _, ref := range buffered {
		incoming[ref.PageID] = ref
	}
	drop := b.retracted[word]

	out := PostingEntry{Word: word, Pages: make([]PageReference, 0, len(stored.Pages)+len(buffered))}
	removed, replaced := 0, 0
	for _, ref := range stored.Pages {
		if _, gone := drop[ref.PageID]; gone {
			removed++
			continue
		}
		if next, ok := incoming[ref.PageID]; ok {
			if !ref.sameAs(next) {
				replaced++
			}
			out.Pages = append(out.Pages, next.clone())
			delete(incoming, ref.PageID)
			continue
		}
		out.Pages = append(out.Pages, ref.clone())
	}
	added := 0
	for _, ref := range buffered {
		if _, ok := incoming[ref.PageID]; ok {
			out.Pages = append(out.Pages, ref.clone())
			added++
		}
	}
	out.PageCount = max(stored.PageCount+added-removed, 0)

	switch {
	case added > 0 || replaced > 0:
		return out, mergeChanged
	case removed > 0:
		return out, mergePruned
	}
	return out, mergeUnchanged
}

// flushWords returns every word with buffered references or retractions,
// in ascending order.
func (b *Builder) flushWords() []string {
	words := b.Words()
	for w := range b.retracted {
		if _, ok := b.entries[w]; !ok {
			words = append(words, w)
		}
	}
	sort.Strings(words)
	return words
}

// retain keeps only the given words in the buffer.
func (b *Builder) retain(words map[string]struct{}) {
	pages := make(map[string]struct{})
	for w, be := range b.entries {
		if _, keep := words[w]; !keep {
			delete(b.entries, w)
			continue
		}
		for _, ref := range be.entry.Pages {
			pages[ref.PageID] = struct{}{}
		}
	}
	for w, retracted := range b.retracted {
		if _, keep := words[w]; !keep {
			delete(b.retracted, w)
			continue
		}
		for pageID := range retracted {
			pages[pageID] = struct{}{}
		}
	}
	b.pages = pages
}

func copyEntry(e PostingEntry) PostingEntry {
	out := PostingEntry{Word: e.Word, PageCount: e.PageCount}
	out.Pages = make([]PageReference, len(e.Pages))
	for i, ref := range e.Pages {
		out.Pages[i] = ref.clone()
	}
	return out
}
