package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadsense/iri-engine/internal/config"
	"github.com/roadsense/iri-engine/internal/models"
)

func newTestCache(t *testing.T, cfg config.CacheConfig) *ResultCache {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	c, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testResult(segments int) *models.IRIResult {
	result := &models.IRIResult{TotalSegments: segments}
	for i := 0; i < segments; i++ {
		result.Segments = append(result.Segments, models.Segment{SegmentID: i})
	}
	return result
}

func TestResultCache_GetOrCompute_SingleFlight(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: time.Minute})

	var computations int64
	compute := func(ctx context.Context) (*models.IRIResult, error) {
		atomic.AddInt64(&computations, 1)
		time.Sleep(50 * time.Millisecond)
		return testResult(3), nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]*models.IRIResult, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "fp-shared", compute)
		}(i)
	}
	wg.Wait()

	// Все ожидающие получили один общий результат одного вычисления
	assert.Equal(t, int64(1), atomic.LoadInt64(&computations))
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 3, results[i].TotalSegments)
	}
}

func TestResultCache_GetOrCompute_DistinctFingerprints(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: time.Minute})

	var computations int64
	compute := func(ctx context.Context) (*models.IRIResult, error) {
		atomic.AddInt64(&computations, 1)
		return testResult(1), nil
	}

	_, err := c.GetOrCompute(context.Background(), "fp-a", compute)
	require.NoError(t, err)
	_, err = c.GetOrCompute(context.Background(), "fp-b", compute)
	require.NoError(t, err)

	// Различные отпечатки вычисляются независимо
	assert.Equal(t, int64(2), atomic.LoadInt64(&computations))
}

func TestResultCache_GetOrCompute_CachesResult(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: time.Minute})

	var computations int64
	compute := func(ctx context.Context) (*models.IRIResult, error) {
		atomic.AddInt64(&computations, 1)
		return testResult(2), nil
	}

	for i := 0; i < 5; i++ {
		result, err := c.GetOrCompute(context.Background(), "fp-repeat", compute)
		require.NoError(t, err)
		assert.Equal(t, 2, result.TotalSegments)
	}

	assert.Equal(t, int64(1), atomic.LoadInt64(&computations))
}

func TestResultCache_GetOrCompute_ErrorsNotCached(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: time.Minute})

	computeErr := errors.New("series rejected")
	var computations int64
	compute := func(ctx context.Context) (*models.IRIResult, error) {
		atomic.AddInt64(&computations, 1)
		return nil, computeErr
	}

	_, err := c.GetOrCompute(context.Background(), "fp-fail", compute)
	assert.ErrorIs(t, err, computeErr)

	// Неудача не кешируется: повторный вызов вычисляет заново
	_, err = c.GetOrCompute(context.Background(), "fp-fail", compute)
	assert.ErrorIs(t, err, computeErr)
	assert.Equal(t, int64(2), atomic.LoadInt64(&computations))
}

func TestResultCache_GetOrCompute_WaiterCancellation(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: time.Minute})

	started := make(chan struct{})
	finished := make(chan struct{})
	compute := func(ctx context.Context) (*models.IRIResult, error) {
		defer close(finished)
		close(started)
		time.Sleep(100 * time.Millisecond)
		return testResult(1), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.GetOrCompute(ctx, "fp-cancel", compute)
	assert.ErrorIs(t, err, context.Canceled)

	// Отмена отпустила ожидающего, но вычисление дошло до конца и
	// пополнило кеш
	<-finished
	result, err := c.GetCached(context.Background(), "fp-cancel")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalSegments)
}

func TestResultCache_GetCached_Miss(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: time.Minute})

	_, err := c.GetCached(context.Background(), "fp-unknown")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestResultCache_Invalidate(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: time.Minute})

	compute := func(ctx context.Context) (*models.IRIResult, error) {
		return testResult(1), nil
	}

	_, err := c.GetOrCompute(context.Background(), "fp-gone", compute)
	require.NoError(t, err)

	c.Invalidate(context.Background(), "fp-gone")

	_, err = c.GetCached(context.Background(), "fp-gone")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestResultCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: 20 * time.Millisecond})

	compute := func(ctx context.Context) (*models.IRIResult, error) {
		return testResult(1), nil
	}

	_, err := c.GetOrCompute(context.Background(), "fp-ttl", compute)
	require.NoError(t, err)

	_, err = c.GetCached(context.Background(), "fp-ttl")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = c.GetCached(context.Background(), "fp-ttl")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestResultCache_LRUEviction(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 2, TTL: time.Minute})

	compute := func(ctx context.Context) (*models.IRIResult, error) {
		return testResult(1), nil
	}

	for _, fp := range []string{"fp-1", "fp-2", "fp-3"} {
		_, err := c.GetOrCompute(context.Background(), fp, compute)
		require.NoError(t, err)
	}

	// Самая старая запись вытеснена, свежие на месте
	_, err := c.GetCached(context.Background(), "fp-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.GetCached(context.Background(), "fp-2")
	assert.NoError(t, err)
	_, err = c.GetCached(context.Background(), "fp-3")
	assert.NoError(t, err)

	size, _, _, _ := c.Stats()
	assert.Equal(t, 2, size)
}

func TestResultCache_Stats(t *testing.T) {
	c := newTestCache(t, config.CacheConfig{Capacity: 10, TTL: time.Minute})

	compute := func(ctx context.Context) (*models.IRIResult, error) {
		return testResult(1), nil
	}

	_, err := c.GetOrCompute(context.Background(), "fp-stats", compute)
	require.NoError(t, err)
	_, err = c.GetOrCompute(context.Background(), "fp-stats", compute)
	require.NoError(t, err)

	size, hits, misses, hitRate := c.Stats()
	assert.Equal(t, 1, size)
	assert.GreaterOrEqual(t, hits, uint64(1))
	assert.GreaterOrEqual(t, misses, uint64(1))
	assert.Greater(t, hitRate, 0.0)
}
