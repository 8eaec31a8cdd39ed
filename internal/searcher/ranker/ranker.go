// Package ranker scores candidate pages by TF-IDF blended with PageRank and
// puts them in a deterministic order.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
)

// IDF modes.
const (
	IDFStandard = "standard"
	IDFLegacy   = "legacy"
)

type ScoredPage struct {
	PageID string  `json:"page_id"`
	Score  float64 `json:"score"`
}

// Params weights the two score components. TotalDocs is the corpus size
// used for IDF. A positive Limit truncates the ranking.
type Params struct {
	TFIDFWeight    float64
	PageRankWeight float64
	IDFMode        string
	TotalDocs      int
	Limit          int
}

// DefaultParams returns the 0.7/0.3 blend with standard IDF.
func DefaultParams() Params {
	return Params{TFIDFWeight: 0.7, PageRankWeight: 0.3, IDFMode: IDFStandard}
}

// ParamsFromConfig copies the scoring settings of cfg.
func ParamsFromConfig(cfg config.SearchConfig) Params {
	return Params{
		TFIDFWeight:    cfg.TFIDFWeight,
		PageRankWeight: cfg.PageRankWeight,
		IDFMode:        cfg.IDFMode,
	}
}

// TF is the share of a page's kept tokens that are occurrences of the
// reference's word. It is 0 for pages without kept tokens.
func TF(ref index.PageReference, pageTokenCount int) float64 {
	if pageTokenCount <= 0 {
		return 0
	}
	return math.Min(1, float64(len(ref.Positions))/float64(pageTokenCount))
}

// IDF returns ln(totalDocs/docFreq), or ln(docFreq/totalDocs) in legacy
// mode. Non-positive inputs give 0.
func IDF(docFreq, totalDocs int, mode string) float64 {
	if docFreq <= 0 || totalDocs <= 0 {
		return 0
	}
	if mode == IDFLegacy {
		return math.Log(float64(docFreq) / float64(totalDocs))
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Score blends one token's TF-IDF with the page's rank.
func Score(tf, idf, pageRank float64, p Params) float64 {
	return p.TFIDFWeight*tf*idf + p.PageRankWeight*pageRank
}

// Rank folds the per-token candidate references into one score per page by
// summing Score over the tokens the page matched. Pages are ordered by
// descending score, then ascending page ID. Only pages present in some
// candidate list are ranked; stats supplies token counts and ranks, and a
// page missing from it scores as an empty, unranked page.
func Rank(candidates map[string][]index.PageReference, docFreq map[string]int, stats map[string]document.PageStats, p Params) []ScoredPage {
	scores := make(map[string]float64)
	for token, refs := range candidates {
		idf := IDF(docFreq[token], p.TotalDocs, p.IDFMode)
		for i := range refs {
			ref := &refs[i]
			st := stats[ref.PageID]
			ref.TF = TF(*ref, st.TokenCount)
			scores[ref.PageID] += Score(ref.TF, idf, st.Rank, p)
		}
	}

	out := make([]ScoredPage, 0, len(scores))
	for id, s := range scores {
		out = append(out, ScoredPage{PageID: id, Score: s})
	}
	Sort(out)
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out
}

// Sort orders pages by descending score, ties by ascending page ID.
func Sort(pages []ScoredPage) {
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Score != pages[j].Score {
			return pages[i].Score > pages[j].Score
		}
		return pages[i].PageID < pages[j].PageID
	})
}
