package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/lyzr/coffeeroster/common/cache"
	"github.com/lyzr/coffeeroster/common/config"
	"github.com/lyzr/coffeeroster/common/logger"
	rediscommon "github.com/lyzr/coffeeroster/common/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Service:  config.ServiceConfig{Name: "roster", Port: 3001, LogLevel: "error"},
		Database: config.DatabaseConfig{Driver: "memory"},
		Cache:    config.CacheConfig{Enabled: true, Driver: "memory", DefaultTTL: time.Minute},
	}
}

func TestSetup_MemoryDriverSkipsDatabase(t *testing.T) {
	ctx := context.Background()

	components, err := Setup(ctx, "roster",
		WithCustomConfig(memoryConfig()),
		WithCustomLogger(logger.Discard()),
	)
	require.NoError(t, err)
	defer components.Shutdown(ctx)

	assert.Nil(t, components.DB)
	assert.Nil(t, components.Redis)
	require.NotNil(t, components.Cache)
	assert.IsType(t, &cache.MemoryCache{}, components.Cache)
	assert.NoError(t, components.Health(ctx))
}

func TestSetup_WithoutCache(t *testing.T) {
	ctx := context.Background()

	components, err := Setup(ctx, "roster",
		WithCustomConfig(memoryConfig()),
		WithCustomLogger(logger.Discard()),
		WithoutCache(),
	)
	require.NoError(t, err)

	assert.Nil(t, components.Cache)
	assert.NoError(t, components.Shutdown(ctx))
	// a second shutdown has nothing left to close
	assert.NoError(t, components.Shutdown(ctx))
}

func TestSetup_RedisCacheNeedsRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.Cache.Driver = "redis"

	_, err := Setup(context.Background(), "roster",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
	)
	assert.ErrorContains(t, err, "redis")
}

func TestComponentsHealth_ReportsRedisOutage(t *testing.T) {
	log := logger.Discard()
	raw := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = raw.Close() })

	components := &Components{Config: memoryConfig(), Logger: log, Redis: rediscommon.NewClient(raw, log)}

	err := components.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRedisUnavailable)
	assert.NotErrorIs(t, err, ErrDatabaseUnavailable)
}
