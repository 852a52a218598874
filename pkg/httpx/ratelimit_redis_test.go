package httpx_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saifdinehd/shopauth/pkg/httpx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisLimiter(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	limiter := httpx.NewRedisLimiter(rdb, "test", "login", cfg)

	for i := range 2 {
		ok, _, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok, "request %d should pass", i+1)
	}

	ok, retry, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, retry, time.Duration(0))
	require.LessOrEqual(t, retry, 30*time.Second)

	ok, _, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, ok, "other keys have their own bucket")

	ttl, err := rdb.TTL(ctx, limiter.BucketKey("10.0.0.1")).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}

func TestRedisLimitersShareStateAcrossInstances(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	a := httpx.RedisLimiters(rdb, "shared")(cfg, "forgot")
	b := httpx.RedisLimiters(rdb, "shared")(cfg, "forgot")

	ok, _, err := a.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = b.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	require.False(t, ok)
}
