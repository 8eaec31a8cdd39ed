// Package query turns a raw search string into the token model shared with
// indexing and fetches the candidate postings for it.
package query

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/tokenizer"
)

const (
	quote      = `"`
	maxLookups = 8
)

// Model is a tokenized query.
//
// OriginalWords is the lowercased unfiltered token stream of the query with
// the enclosing quotes of a phrase query removed. StemmedTokens holds each
// distinct kept token once, in query order. StemmedToOriginal maps a stem to
// the first query word that produced it.
type Model struct {
	Raw               string
	OriginalWords     []string
	StemmedTokens     []string
	StemmedToOriginal map[string]string
	IsPhrase          bool
}

// Empty reports whether the query has nothing to search for.
func (m Model) Empty() bool {
	return len(m.StemmedTokens) == 0
}

type Processor struct {
	tok *tokenizer.Tokenizer
}

func NewProcessor(tok *tokenizer.Tokenizer) *Processor {
	return &Processor{tok: tok}
}

// Tokenize builds the Model for q with the indexing pipeline. A query whose
// first and last tokens are double quotes, with at least one token between
// them, is a phrase query. Any other quote is ordinary punctuation and is
// dropped by cleaning. Empty and quote-only queries yield an empty model.
func (p *Processor) Tokenize(q string) Model {
	m := Model{
		Raw:               q,
		StemmedToOriginal: make(map[string]string),
	}
	raw := p.tok.Split(strings.ToLower(q))
	if n := len(raw); n >= 3 && raw[0].Text == quote && raw[n-1].Text == quote {
		m.IsPhrase = true
		raw = raw[1 : n-1]
	}

	m.OriginalWords = make([]string, 0, len(raw))
	for _, rt := range raw {
		word := rt.Lower()
		m.OriginalWords = append(m.OriginalWords, word)
		stem := p.tok.Clean(rt)
		if stem == "" {
			continue
		}
		if _, seen := m.StemmedToOriginal[stem]; seen {
			continue
		}
		m.StemmedToOriginal[stem] = word
		m.StemmedTokens = append(m.StemmedTokens, stem)
	}
	return m
}

// RetrieveCandidates looks up the posting entry of every token on its own
// and returns them keyed by token. Tokens without postings map to an empty
// entry.
func (p *Processor) RetrieveCandidates(ctx context.Context, store index.PostingStore, tokens []string) (map[string]index.PostingEntry, error) {
	results := make([]index.PostingEntry, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for i, token := range tokens {
		g.Go(func() error {
			entries, err := store.FindPostings(gctx, []string{token})
			if err != nil {
				return fmt.Errorf("postings for %q: %w", token, err)
			}
			results[i] = index.PostingEntry{Word: token}
			for _, e := range entries {
				if e.Word == token {
					results[i] = e
					break
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]index.PostingEntry, len(tokens))
	for _, e := range results {
		out[e.Word] = e
	}
	return out, nil
}
