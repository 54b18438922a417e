package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/metrics"
)

type failingWarmer struct {
	cache *datasource.ResponseCache
}

func (f failingWarmer) Warm(context.Context) (int, error) {
	return 0, errors.New("upstream down")
}

func (f failingWarmer) Cache() *datasource.ResponseCache {
	return f.cache
}

func newCachedMock() *datasource.CachedProvider {
	cache := datasource.NewResponseCache(time.Minute, 100)
	return datasource.NewCachedProvider(datasource.NewMockProvider(1, 0), cache, nil)
}

func TestScheduler_RunCacheWarmup(t *testing.T) {
	s := NewScheduler(nil)
	provider := newCachedMock()

	before := testutil.ToFloat64(metrics.CacheWarmupsTotal.WithLabelValues("success"))
	require.NoError(t, s.RunCacheWarmup(context.Background(), provider))

	assert.Equal(t, 5, provider.Cache().ItemCount())
	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.CacheWarmupsTotal.WithLabelValues("success")), 1e-9)
}

func TestScheduler_RunCacheWarmupFailure(t *testing.T) {
	s := NewScheduler(nil)
	warmer := failingWarmer{cache: datasource.NewResponseCache(time.Minute, 10)}

	before := testutil.ToFloat64(metrics.CacheWarmupsTotal.WithLabelValues("error"))
	assert.Error(t, s.RunCacheWarmup(context.Background(), warmer))
	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.CacheWarmupsTotal.WithLabelValues("error")), 1e-9)
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := NewScheduler(nil)

	assert.Error(t, s.Start(), "no jobs scheduled")
	assert.Error(t, s.ScheduleCacheWarmup("not a cron", newCachedMock()))

	require.NoError(t, s.ScheduleCacheWarmup("*/5 * * * *", newCachedMock()))
	assert.Equal(t, 1, s.Entries())
	assert.True(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.ScheduleCacheWarmup("*/5 * * * *", newCachedMock()))
	assert.False(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop())
}
