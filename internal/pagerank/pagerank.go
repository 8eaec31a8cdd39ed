// Package pagerank computes a global importance score per known page from
// the link graph and persists it through a RankStore.
package pagerank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/resilience"
)

// State is the lifecycle stage of a computation.
type State int

const (
	Uninitialized State = iota
	RankInitialized
	Iterating
	Converged
	MaxIterationsReached
	NotComputed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case RankInitialized:
		return "rank_initialized"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max_iterations"
	case NotComputed:
		return "not_computed"
	default:
		return "unknown"
	}
}

// RankVector maps page ID to rank.
type RankVector map[string]float64

// Sum returns the total rank mass.
func (r RankVector) Sum() float64 {
	var s float64
	for _, v := range r {
		s += v
	}
	return s
}

// Result is the outcome of one computation.
type Result struct {
	State      State
	Ranks      RankVector
	Iterations int
	Delta      float64
}

// RankStore persists a full rank vector. WriteRanks must apply all ranks or
// none.
type RankStore interface {
	WriteRanks(ctx context.Context, ranks map[string]float64) error
}

// IterationFunc observes the vector produced by each iteration. It must not
// modify ranks.
type IterationFunc func(iteration int, ranks RankVector, delta float64)

// Engine runs the power iteration. Zero-valued tuning fields fall back to
// damping 0.85, tolerance 1e-9, 100 iterations and GOMAXPROCS workers.
type Engine struct {
	Damping       float64
	Tolerance     float64
	MaxIterations int
	Workers       int
	OnIteration   IterationFunc

	source  document.Source
	store   RankStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithIterationHook(fn IterationFunc) Option {
	return func(e *Engine) { e.OnIteration = fn }
}

func NewEngine(cfg config.PageRankConfig, source document.Source, store RankStore, opts ...Option) *Engine {
	e := &Engine{
		Damping:       cfg.Damping,
		Tolerance:     cfg.Tolerance,
		MaxIterations: cfg.MaxIterations,
		Workers:       cfg.Workers,
		source:        source,
		store:         store,
		logger:        slog.Default().With("component", "pagerank"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) params() (d, tol float64, maxIter, workers int) {
	d, tol, maxIter, workers = e.Damping, e.Tolerance, e.MaxIterations, e.Workers
	if d <= 0 || d >= 1 {
		d = 0.85
	}
	if tol <= 0 {
		tol = 1e-9
	}
	if maxIter <= 0 {
		maxIter = 100
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return d, tol, maxIter, workers
}

// Compute iterates until the mean absolute per-page change drops below the
// tolerance or the iteration cap is hit. Every iteration first sums the rank
// of dangling pages, then computes each page's new rank from the previous
// vector in parallel; the next iteration starts only after all pages are
// done. Cancellation is checked between iterations.
func (e *Engine) Compute(ctx context.Context, g *Graph) (*Result, error) {
	n := g.Len()
	if n == 0 {
		return &Result{State: NotComputed}, apperrors.ErrEmptyCorpus
	}
	d, tol, maxIter, workers := e.params()
	if workers > n {
		workers = n
	}

	res := &Result{State: Uninitialized}
	prev := make([]float64, n)
	for i := range prev {
		prev[i] = 1 / float64(n)
	}
	res.State = RankInitialized

	base := (1 - d) / float64(n)
	chunk := (n + workers - 1) / workers
	diffs := make([]float64, workers)

	for iter := 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pagerank iteration %d: %w", iter, err)
		}
		res.State = Iterating

		var dangling float64
		for i, out := range g.outDegree {
			if out == 0 {
				dangling += prev[i]
			}
		}
		share := dangling / float64(n)

		next := make([]float64, n)
		var eg errgroup.Group
		for w := 0; w < workers; w++ {
			lo, hi := w*chunk, min((w+1)*chunk, n)
			eg.Go(func() error {
				var diff float64
				for v := lo; v < hi; v++ {
					var sum float64
					for _, u := range g.incoming[v] {
						sum += prev[u] / float64(g.outDegree[u])
					}
					next[v] = d*(sum+share) + base
					diff += math.Abs(next[v] - prev[v])
				}
				diffs[w] = diff
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		var total float64
		for _, x := range diffs {
			total += x
		}
		delta := total / float64(n)
		prev = next
		res.Iterations = iter
		res.Delta = delta

		if e.OnIteration != nil {
			e.OnIteration(iter, e.vector(g, prev), delta)
		}
		if delta < tol {
			res.State = Converged
			break
		}
	}
	if res.State != Converged {
		res.State = MaxIterationsReached
	}
	res.Ranks = e.vector(g, prev)
	return res, nil
}

func (e *Engine) vector(g *Graph, ranks []float64) RankVector {
	out := make(RankVector, len(ranks))
	for i, r := range ranks {
		out[g.ids[i]] = r
	}
	return out
}

// Run loads every known document, computes ranks and writes them in one
// bulk call. An empty corpus is reported as NotComputed without error and
// nothing is written. Ranks are never written when the computation fails.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	docs, err := e.source.ListKnownDocuments(ctx)
	if err != nil {
		e.observe("error", 0, start)
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	g := BuildGraph(docs)

	res, err := e.Compute(ctx, g)
	if errors.Is(err, apperrors.ErrEmptyCorpus) {
		e.logger.Warn("no documents to rank", "error", err)
		e.observe(NotComputed.String(), 0, start)
		return res, nil
	}
	if err != nil {
		e.observe("error", 0, start)
		return nil, err
	}

	err = resilience.Retry(ctx, "write-ranks", resilience.RetryConfig{}, func() error {
		return e.store.WriteRanks(ctx, res.Ranks)
	})
	if err != nil {
		e.observe("error", res.Iterations, start)
		return nil, fmt.Errorf("writing ranks: %w", err)
	}

	e.observe(res.State.String(), res.Iterations, start)
	e.logger.Info("pagerank computed",
		"pages", g.Len(),
		"dangling", len(g.Dangling()),
		"state", res.State.String(),
		"iterations", res.Iterations,
		"delta", res.Delta,
		"duration", time.Since(start),
	)
	return res, nil
}

func (e *Engine) observe(outcome string, iterations int, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.PageRankRunsTotal.WithLabelValues(outcome).Inc()
	e.metrics.PageRankIterations.Set(float64(iterations))
	e.metrics.PageRankDuration.Observe(time.Since(start).Seconds())
}
