package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
)

func benchCandidates(terms, pages int) (map[string][]index.PageReference, map[string]int, map[string]document.PageStats) {
	candidates := make(map[string][]index.PageReference, terms)
	docFreq := make(map[string]int, terms)
	stats := make(map[string]document.PageStats, pages)
	for p := 0; p < pages; p++ {
		id := fmt.Sprintf("page-%d", p)
		stats[id] = document.PageStats{ID: id, TokenCount: 100 + p%50, Rank: 1 / float64(pages)}
	}
	for t := 0; t < terms; t++ {
		word := fmt.Sprintf("term%d", t)
		refs := make([]index.PageReference, pages)
		for p := range refs {
			refs[p] = index.PageReference{PageID: fmt.Sprintf("page-%d", p), Positions: make([]int, p%10+1)}
		}
		candidates[word] = refs
		docFreq[word] = pages
	}
	return candidates, docFreq, stats
}

// BenchmarkRank measures scoring and sorting for growing candidate sets.
func BenchmarkRank(b *testing.B) {
	for _, pages := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("pages_%d", pages), func(b *testing.B) {
			candidates, docFreq, stats := benchCandidates(1, pages)
			p := DefaultParams()
			p.TotalDocs = pages * 2
			p.Limit = 10
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Rank(candidates, docFreq, stats, p)
			}
		})
	}
}

// BenchmarkRankMultiTerm measures ranking with an increasing number of query
// terms over the same pages.
func BenchmarkRankMultiTerm(b *testing.B) {
	for _, terms := range []int{1, 3, 5} {
		b.Run(fmt.Sprintf("terms_%d", terms), func(b *testing.B) {
			candidates, docFreq, stats := benchCandidates(terms, 1000)
			p := DefaultParams()
			p.TotalDocs = 5000
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Rank(candidates, docFreq, stats, p)
			}
		})
	}
}
