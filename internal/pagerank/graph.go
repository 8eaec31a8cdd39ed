package pagerank

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
)

// Graph is the link structure of one run, restricted to known pages. It is
// read-only once built.
type Graph struct {
	ids       []string
	index     map[string]int
	outDegree []int
	incoming  [][]int
}

// BuildGraph derives the graph from docs. Outlinks are resolved to page IDs;
// links to unknown pages and self links are ignored, and several links from
// one page to the same target count once.
func BuildGraph(docs []document.Document) *Graph {
	g := &Graph{index: make(map[string]int, len(docs))}
	for _, d := range docs {
		if _, dup := g.index[d.ID]; dup || d.ID == "" {
			continue
		}
		g.ids = append(g.ids, d.ID)
		g.index[d.ID] = -1
	}
	sort.Strings(g.ids)
	for i, id := range g.ids {
		g.index[id] = i
	}
	g.outDegree = make([]int, len(g.ids))
	g.incoming = make([][]int, len(g.ids))

	done := make(map[string]bool, len(g.ids))
	for _, d := range docs {
		from, ok := g.index[d.ID]
		if !ok || done[d.ID] {
			continue
		}
		done[d.ID] = true
		targets := make(map[int]bool, len(d.Outlinks))
		for _, link := range d.Outlinks {
			to, ok := g.index[document.PageID(link)]
			if !ok || to == from || targets[to] {
				continue
			}
			targets[to] = true
			g.outDegree[from]++
			g.incoming[to] = append(g.incoming[to], from)
		}
	}
	for _, in := range g.incoming {
		sort.Ints(in)
	}
	return g
}

// Len returns the number of known pages.
func (g *Graph) Len() int { return len(g.ids) }

// IDs returns the known page IDs in ascending order.
func (g *Graph) IDs() []string { return append([]string(nil), g.ids...) }

// OutDegree returns the number of known pages id links to.
func (g *Graph) OutDegree(id string) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return g.outDegree[i]
}

// Incoming returns the known pages linking to id.
func (g *Graph) Incoming(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.incoming[i]))
	for k, u := range g.incoming[i] {
		out[k] = g.ids[u]
	}
	return out
}

// Dangling returns the pages without known outgoing links.
func (g *Graph) Dangling() []string {
	var out []string
	for i, n := range g.outDegree {
		if n == 0 {
			out = append(out, g.ids[i])
		}
	}
	return out
}
