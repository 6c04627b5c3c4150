package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/coffeeroster/common/cache"
	"github.com/lyzr/coffeeroster/common/config"
	"github.com/lyzr/coffeeroster/common/db"
	"github.com/lyzr/coffeeroster/common/logger"
	"github.com/lyzr/coffeeroster/common/migrations"
	rediscommon "github.com/lyzr/coffeeroster/common/redis"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
		"storage", cfg.Database.Driver,
	)

	// 3. Initialize database (postgres driver only)
	if cfg.Database.Driver == "postgres" {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, cfg, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})

		if cfg.Database.RunMigrations {
			components.Logger.Info("applying migrations")
			if err := migrations.Up(ctx, components.DB.SQL()); err != nil {
				components.Shutdown(ctx) // Cleanup what we've initialized
				return nil, fmt.Errorf("migrations failed: %w", err)
			}
		}
	}

	// 4. Initialize redis (if configured)
	if cfg.RedisEnabled() {
		components.Logger.Info("connecting to redis", "addr", cfg.RedisAddr())
		raw, err := rediscommon.Dial(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		components.Redis = rediscommon.NewClient(raw, components.Logger)

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 5. Initialize cache (if not skipped)
	if !options.skipCache && cfg.Cache.Enabled {
		components.Logger.Info("initializing cache", "driver", cfg.Cache.Driver)

		switch cfg.Cache.Driver {
		case "redis":
			if components.Redis == nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("redis cache requested but redis is not connected")
			}
			components.Cache = cache.NewRedisCache(components.Redis, serviceName+":")
		default:
			components.Cache = cache.NewMemoryCache(components.Logger)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"cache", components.Cache != nil,
	)

	return components, nil
}
