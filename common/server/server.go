package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lyzr/coffeeroster/common/config"
	"github.com/lyzr/coffeeroster/common/logger"
)

// Server wraps an HTTP server with graceful shutdown. Hooks registered with
// OnShutdown run after the listener has drained, in registration order.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
	name       string
	grace      time.Duration
	hooks      []func(context.Context) error
}

// New creates a server for the service settings in cfg
func New(cfg config.ServiceConfig, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log:   log,
		name:  cfg.Name,
		grace: cfg.ShutdownGrace,
	}
}

// OnShutdown registers fn to run once the server has stopped
func (s *Server) OnShutdown(fn func(context.Context) error) {
	s.hooks = append(s.hooks, fn)
}

// Start listens on the configured port until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.runHooks(context.Background())
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for at most the shutdown grace period
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.log.Info(fmt.Sprintf("%s starting", s.name), "addr", ln.Addr().String())
		serverErrors <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		s.runHooks(context.Background())
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		s.log.Info("shutdown signal received", "grace", s.grace)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
		defer cancel()

		var shutdownErr error
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("graceful shutdown failed", "error", err)
			if err := s.httpServer.Close(); err != nil {
				shutdownErr = fmt.Errorf("could not stop server: %w", err)
			}
		}
		if err := <-serverErrors; err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("server exited with error", "error", err)
		}

		if err := s.runHooks(shutdownCtx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
		s.log.Info("shutdown complete")
		return shutdownErr
	}
}

func (s *Server) runHooks(ctx context.Context) error {
	var errs []error
	for _, fn := range s.hooks {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.hooks = nil
	return errors.Join(errs...)
}
