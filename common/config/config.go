package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Features FeatureFlags
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string

	// HTTP server timeouts and the drain window on SIGINT/SIGTERM
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	ShutdownGrace time.Duration
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Driver        string // "postgres" or "memory"
	URL           string // takes priority over the discrete fields when set
	Host          string
	Port          int
	Database      string
	User          string
	Password      string
	MaxConns      int
	MinConns      int
	MaxIdleTime   time.Duration
	MaxLifetime   time.Duration
	RunMigrations bool
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool
	Driver     string // "memory" or "redis"
	DefaultTTL time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds the shared-password login settings
type AuthConfig struct {
	SharedPassword     string
	SharedPasswordHash string // bcrypt hash, preferred over SharedPassword when set
	TokenSecret        string
	TokenTTL           time.Duration
	Required           bool
	LoginRateLimit     int64 // attempts per minute per client IP, 0 disables
}

// FeatureFlags toggles optional behaviour
type FeatureFlags struct {
	// SwallowHistoryErrors downgrades reorder-history read failures to an empty list.
	SwallowHistoryErrors bool
	IdempotencyTTL       time.Duration
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 3001),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development

			ReadTimeout:   getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getEnvDuration("HTTP_IDLE_TIMEOUT", 2*time.Minute),
			ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:        getEnv("STORAGE_DRIVER", "postgres"),
			URL:           getEnv("DATABASE_URL", ""),
			Host:          getEnv("POSTGRES_HOST", "localhost"),
			Port:          getEnvInt("POSTGRES_PORT", 5432),
			Database:      getEnv("POSTGRES_DB", "coffee"),
			User:          getEnv("POSTGRES_USER", "coffee"),
			Password:      getEnv("POSTGRES_PASSWORD", "coffee"),
			MaxConns:      getEnvInt("POSTGRES_MAX_CONNS", 10),
			MinConns:      getEnvInt("POSTGRES_MIN_CONNS", 1),
			MaxIdleTime:   getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime:   getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
			RunMigrations: getEnvBool("RUN_MIGRATIONS", true),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			Driver:     getEnv("CACHE_DRIVER", "memory"),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SharedPassword:     getEnv("APP_SHARED_PASSWORD", ""),
			SharedPasswordHash: getEnv("APP_SHARED_PASSWORD_HASH", ""),
			TokenSecret:        getEnv("AUTH_TOKEN_SECRET", ""),
			TokenTTL:           getEnvDuration("AUTH_TOKEN_TTL", 7*24*time.Hour),
			Required:           getEnvBool("AUTH_REQUIRED", false),
			LoginRateLimit:     int64(getEnvInt("LOGIN_RATE_LIMIT", 10)),
		},
		Features: FeatureFlags{
			SwallowHistoryErrors: getEnvBool("HISTORY_SWALLOW_ERRORS", true),
			IdempotencyTTL:       getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}
	if c.Service.ReadTimeout <= 0 || c.Service.WriteTimeout <= 0 || c.Service.IdleTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.Service.ShutdownGrace <= 0 {
		return fmt.Errorf("shutdown grace must be positive")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Database.Driver)
	}

	if c.Cache.Enabled {
		switch c.Cache.Driver {
		case "memory":
		case "redis":
			if !c.RedisEnabled() {
				return fmt.Errorf("redis cache requires REDIS_HOST")
			}
		default:
			return fmt.Errorf("unknown cache driver: %s", c.Cache.Driver)
		}
	}

	if c.Auth.Required && c.Auth.TokenSecret == "" {
		return fmt.Errorf("AUTH_REQUIRED needs AUTH_TOKEN_SECRET")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisEnabled reports whether a Redis endpoint was configured
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
