package pagerank

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/store/memory"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/metrics"
)

func page(url string, links ...string) document.Document {
	return document.Document{ID: document.PageID(url), URL: url, Outlinks: links}
}

const (
	urlA = "https://a.example/"
	urlB = "https://b.example/"
	urlC = "https://c.example/"
	urlD = "https://d.example/"
)

var (
	idA = document.PageID(urlA)
	idB = document.PageID(urlB)
	idC = document.PageID(urlC)
	idD = document.PageID(urlD)
)

func defaultConfig() config.PageRankConfig {
	return config.Default().PageRank
}

func TestBuildGraph(t *testing.T) {
	g := BuildGraph([]document.Document{
		page(urlA, urlB, urlB, urlA, "https://unknown.example/"),
		page(urlB, urlC),
		page(urlC),
	})
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 1, g.OutDegree(idA), "duplicate, self and unknown links are ignored")
	assert.Equal(t, 1, g.OutDegree(idB))
	assert.Equal(t, 0, g.OutDegree(idC))
	assert.Equal(t, []string{idA}, g.Incoming(idB))
	assert.Empty(t, g.Incoming(idA))
	assert.Equal(t, []string{idC}, g.Dangling())
}

func TestComputeChain(t *testing.T) {
	g := BuildGraph([]document.Document{
		page(urlA, urlB),
		page(urlB, urlC),
		page(urlC),
	})
	e := NewEngine(defaultConfig(), nil, nil)
	res, err := e.Compute(context.Background(), g)
	require.NoError(t, err)

	assert.Contains(t, []State{Converged, MaxIterationsReached}, res.State)
	assert.Greater(t, res.Ranks[idC], res.Ranks[idB])
	assert.Greater(t, res.Ranks[idB], res.Ranks[idA])
	assert.InDelta(t, 1.0, res.Ranks.Sum(), 1e-6)
}

func TestComputeConvergesWithLooseTolerance(t *testing.T) {
	g := BuildGraph([]document.Document{
		page(urlA, urlB),
		page(urlB, urlA),
	})
	cfg := defaultConfig()
	cfg.Tolerance = 1e-6
	res, err := NewEngine(cfg, nil, nil).Compute(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.State)
	assert.Equal(t, 1, res.Iterations, "a symmetric cycle is already stationary")
	assert.InDelta(t, 0.5, res.Ranks[idA], 1e-12)
}

func TestComputeMaxIterations(t *testing.T) {
	g := BuildGraph([]document.Document{page(urlA, urlB), page(urlB, urlC), page(urlC)})
	cfg := defaultConfig()
	cfg.MaxIterations = 3
	res, err := NewEngine(cfg, nil, nil).Compute(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, MaxIterationsReached, res.State)
	assert.Equal(t, 3, res.Iterations)
}

func TestDanglingMassIsConserved(t *testing.T) {
	g := BuildGraph([]document.Document{
		page(urlA, urlB),
		page(urlB),
		page(urlC, urlA),
		page(urlD),
	})
	require.Len(t, g.Dangling(), 2)

	var sums []float64
	cfg := defaultConfig()
	cfg.Workers = 3
	e := NewEngine(cfg, nil, nil, WithIterationHook(func(_ int, ranks RankVector, _ float64) {
		sums = append(sums, ranks.Sum())
	}))
	_, err := e.Compute(context.Background(), g)
	require.NoError(t, err)
	require.NotEmpty(t, sums)
	for i, s := range sums {
		assert.InDelta(t, 1.0, s, 1e-12, "iteration %d", i+1)
	}
}

func TestComputeWorkersAgree(t *testing.T) {
	docs := []document.Document{
		page(urlA, urlB, urlC),
		page(urlB, urlC),
		page(urlC, urlA),
		page(urlD, urlC),
	}
	single := defaultConfig()
	single.Workers = 1
	many := defaultConfig()
	many.Workers = 8

	r1, err := NewEngine(single, nil, nil).Compute(context.Background(), BuildGraph(docs))
	require.NoError(t, err)
	r2, err := NewEngine(many, nil, nil).Compute(context.Background(), BuildGraph(docs))
	require.NoError(t, err)
	for id, v := range r1.Ranks {
		assert.InDelta(t, v, r2.Ranks[id], 1e-15)
	}
	assert.Equal(t, r1.Iterations, r2.Iterations)
}

func TestComputeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(defaultConfig(), nil, nil).Compute(ctx, BuildGraph([]document.Document{page(urlA)}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunWritesRanks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, d := range []document.Document{page(urlA, urlB), page(urlB, urlC), page(urlC)} {
		require.NoError(t, store.SaveDocument(ctx, d))
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	res, err := NewEngine(defaultConfig(), store, store, WithMetrics(m)).Run(ctx)
	require.NoError(t, err)

	stats, err := store.GetPageStats(ctx, []string{idA, idB, idC})
	require.NoError(t, err)
	assert.Equal(t, res.Ranks[idC], stats[idC].Rank)
	assert.Greater(t, stats[idC].Rank, stats[idA].Rank)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PageRankRunsTotal.WithLabelValues(res.State.String())))
}

func TestRunEmptyCorpus(t *testing.T) {
	res, err := NewEngine(defaultConfig(), memory.New(), memory.New()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NotComputed, res.State)
	assert.Nil(t, res.Ranks)
}

func TestRunWriteFailureLeavesRanks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SaveDocument(ctx, page(urlA, urlB)))
	require.NoError(t, store.SaveDocument(ctx, page(urlB)))
	store.FailRanks(true)

	cfg := defaultConfig()
	_, err := NewEngine(cfg, store, store).Run(ctx)
	require.Error(t, err)

	stats, _ := store.GetPageStats(ctx, []string{idA, idB})
	assert.Zero(t, stats[idA].Rank)
	assert.Zero(t, stats[idB].Rank)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "max_iterations", MaxIterationsReached.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.False(t, math.IsNaN(RankVector{}.Sum()))
}
