package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/resilience"
)

type mapBackend struct {
	mu   sync.Mutex
	data map[string]string
	err  error
	gets int
}

func newMapBackend() *mapBackend {
	return &mapBackend{data: make(map[string]string)}
}

func (b *mapBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	if b.err != nil {
		return "", b.err
	}
	v, ok := b.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (b *mapBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	switch v := value.(type) {
	case []byte:
		b.data[key] = string(v)
	case string:
		b.data[key] = v
	}
	return nil
}

func (b *mapBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()
	c := New(newMapBackend(), time.Minute, nil)
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return &executor.SearchResult{Query: "Data Science", TotalHits: 1, Results: []executor.Result{{PageID: "p1", Score: 0.5}}}, nil
	}

	res, hit, err := c.GetOrCompute(ctx, "Data Science", 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, res.TotalHits)

	res, hit, err = c.GetOrCompute(ctx, "  data   science ", 10, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "p1", res.Results[0].PageID)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrComputeCoalesces(t *testing.T) {
	c := New(newMapBackend(), time.Minute, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return &executor.SearchResult{Query: "q"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "q", 10, compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrComputeError(t *testing.T) {
	b := newMapBackend()
	c := New(b, time.Minute, nil)
	_, _, err := c.GetOrCompute(context.Background(), "q", 10, func() (*executor.SearchResult, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	assert.Empty(t, b.data, "errors are not cached")
}

func TestBackendErrorIsAMiss(t *testing.T) {
	b := newMapBackend()
	b.err = errors.New("connection refused")
	c := New(b, time.Minute, nil)
	_, ok := c.Get(context.Background(), "q", 10)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	b := newMapBackend()
	b.data["other:key"] = "x"
	c := New(b, time.Minute, nil)
	c.Set(ctx, "q", 10, &executor.SearchResult{Query: "q"})
	require.Len(t, b.data, 2)

	require.NoError(t, c.Invalidate(ctx))
	assert.Len(t, b.data, 1)
	_, ok := c.Get(ctx, "q", 10)
	assert.False(t, ok)
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, BuildKey("Data  Science", 10), BuildKey("data science", 10))
	assert.NotEqual(t, BuildKey("data science", 10), BuildKey("science data", 10))
	assert.NotEqual(t, BuildKey(`"data science"`, 10), BuildKey("data science", 10))
	assert.NotEqual(t, BuildKey("q", 10), BuildKey("q", 20))
	assert.True(t, strings.HasPrefix(BuildKey("q", 1), keyPrefix))
}

func TestInvalidateOnUpdate(t *testing.T) {
	ctx := context.Background()
	backend := newMapBackend()
	c := New(backend, time.Minute, nil)
	c.Set(ctx, "cats", 10, &executor.SearchResult{Query: "cats"})
	_, ok := c.Get(ctx, "cats", 10)
	require.True(t, ok)

	handle := InvalidateOnUpdate(c)
	require.NoError(t, handle(ctx, nil, []byte("not json")))
	_, ok = c.Get(ctx, "cats", 10)
	assert.True(t, ok, "malformed event leaves the cache alone")

	require.NoError(t, handle(ctx, []byte("indexer"), []byte(`{"event_id":"e1","source":"indexer","words":3,"pages":1}`)))
	_, ok = c.Get(ctx, "cats", 10)
	assert.False(t, ok)
}

func TestGuardedBackendSkipsRedisWhileOpen(t *testing.T) {
	ctx := context.Background()
	backend := newMapBackend()
	c := New(Guard(backend, NewBreaker(2, time.Minute)), time.Minute, nil)

	for range 5 {
		_, ok := c.Get(ctx, "go", 10)
		assert.False(t, ok)
	}
	assert.Equal(t, 5, backend.gets, "misses do not trip the breaker")

	backend.err = errors.New("connection refused")
	for range 5 {
		result, hit, err := c.GetOrCompute(ctx, "go", 10, func() (*executor.SearchResult, error) {
			return &executor.SearchResult{Query: "go"}, nil
		})
		require.NoError(t, err, "searches still succeed without the cache")
		assert.False(t, hit)
		assert.Equal(t, "go", result.Query)
	}
	assert.Equal(t, 6, backend.gets, "the failed get and set open the breaker; later calls skip redis")

	err := c.Invalidate(ctx)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
