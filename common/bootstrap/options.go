package bootstrap

import (
	"github.com/lyzr/coffeeroster/common/config"
	"github.com/lyzr/coffeeroster/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipCache    bool
	customLogger *logger.Logger
	customConfig *config.Config
}

// WithoutCache skips cache initialization
func WithoutCache() Option {
	return func(o *options) {
		o.skipCache = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

func defaultOptions() *options {
	return &options{}
}
