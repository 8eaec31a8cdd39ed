// Package phrase verifies that an occurrence of a query token sits inside
// the full quoted phrase.
package phrase

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/query"
)

// IsMatch reports whether the phrase originalWords occurs in bodyTokens
// with anchor at position. The words before and after anchor are compared
// with the tokens before and after position, outward in lock step, until
// either side runs out; a single mismatch fails the match. Reaching the
// start or end of the body early is not a mismatch.
func IsMatch(bodyTokens, originalWords []string, anchor string, position int) bool {
	if position < 0 || position >= len(bodyTokens) {
		return false
	}
	idx := slices.Index(originalWords, anchor)
	if idx < 0 {
		return false
	}
	for i, off := idx-1, position-1; i >= 0 && off >= 0; i, off = i-1, off-1 {
		if originalWords[i] != bodyTokens[off] {
			return false
		}
	}
	for i, off := idx+1, position+1; i < len(originalWords) && off < len(bodyTokens); i, off = i+1, off+1 {
		if originalWords[i] != bodyTokens[off] {
			return false
		}
	}
	return true
}

// Anchor returns the query word a stemmed token came from, or the stem
// itself when the model has no mapping for it.
func Anchor(m query.Model, stemmed string) string {
	if word, ok := m.StemmedToOriginal[stemmed]; ok {
		return word
	}
	return stemmed
}
