package index

import (
	"context"
	"maps"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
)

// PageReference records where one word occurs in one page. Positions index
// the page's unfiltered token stream and never decrease. TF is filled in by
// the ranker and is not persisted.
type PageReference struct {
	PageID    string                 `json:"page_id"`
	Positions []int                  `json:"positions"`
	Fields    map[document.Field]int `json:"fields,omitempty"`
	TF        float64                `json:"-"`
}

// PostingEntry is the posting list of one word.
type PostingEntry struct {
	Word      string          `json:"word"`
	Pages     []PageReference `json:"pages"`
	PageCount int             `json:"page_count"`
}

// MergeFunc computes the entry to store for word from the stored one, which
// is nil when the word has none. It reports false to leave the store as is.
// An entry without pages deletes the word.
type MergeFunc func(word string, stored *PostingEntry) (PostingEntry, bool)

// PostingStore is the persistent side of the inverted index.
//
// MergePostings runs merge once per word, reading the stored entry and
// writing the result atomically with respect to other merges of the same
// word. Words are independent: it returns the number of words written, and
// when some failed the error is an *errors.PartialWriteError naming them.
type PostingStore interface {
	FindPostings(ctx context.Context, words []string) ([]PostingEntry, error)
	MergePostings(ctx context.Context, words []string, merge MergeFunc) (int, error)
}

func (r PageReference) clone() PageReference {
	out := PageReference{
		PageID:    r.PageID,
		Positions: append([]int(nil), r.Positions...),
	}
	if len(r.Fields) > 0 {
		out.Fields = make(map[document.Field]int, len(r.Fields))
		for f, n := range r.Fields {
			out.Fields[f] = n
		}
	}
	return out
}

func (r PageReference) sameAs(o PageReference) bool {
	return r.PageID == o.PageID &&
		slices.Equal(r.Positions, o.Positions) &&
		maps.Equal(r.Fields, o.Fields)
}
