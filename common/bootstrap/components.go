package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/lyzr/coffeeroster/common/cache"
	"github.com/lyzr/coffeeroster/common/config"
	"github.com/lyzr/coffeeroster/common/db"
	"github.com/lyzr/coffeeroster/common/logger"
	rediscommon "github.com/lyzr/coffeeroster/common/redis"
)

// Health failures wrap one of these so callers can tell which dependency is down
var (
	ErrDatabaseUnavailable = errors.New("database unavailable")
	ErrRedisUnavailable    = errors.New("redis unavailable")
)

// Components holds all initialized service dependencies.
// DB is nil with the memory storage driver; Redis is nil unless REDIS_HOST
// is set; Cache is nil when caching is disabled.
type Components struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.DB
	Redis  *rediscommon.Client
	Cache  cache.Cache

	// Internal
	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks health of all components
func (c *Components) Health(ctx context.Context) error {
	// Check database
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
		}
	}

	return nil
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
