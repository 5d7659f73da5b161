package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*ReportCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewReportCache(client, nil), mr
}

func TestGetOrComputeCachesPayload(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return map[string]string{"total": "100.00"}, nil
	}

	first, err := c.GetOrCompute(ctx, "reports:tb", time.Minute, compute)
	require.NoError(t, err)
	second, err := c.GetOrCompute(ctx, "reports:tb", time.Minute, compute)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	_, err := c.GetOrCompute(ctx, "reports:tb", time.Minute, compute)
	require.NoError(t, err)
	c.Invalidate(ctx, "reports:tb")
	body, err := c.GetOrCompute(ctx, "reports:tb", time.Minute, compute)
	require.NoError(t, err)
	require.Equal(t, []byte("2"), body)
	require.Equal(t, 2, calls)
}

func TestComputeErrorPropagates(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	boom := errors.New("boom")
	_, err := c.GetOrCompute(ctx, "reports:tb", time.Minute, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestNilCacheComputesDirectly(t *testing.T) {
	ctx := context.Background()
	var c *ReportCache

	body, err := c.GetOrCompute(ctx, "reports:tb", time.Minute, func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte(`"ok"`), body)
	c.Invalidate(ctx, "reports:tb")
}
