package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/lyzr/coffeeroster/common/config"
	"github.com/lyzr/coffeeroster/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, net.Listener) {
	t.Helper()
	cfg := config.ServiceConfig{
		Name:          "roster",
		ReadTimeout:   time.Second,
		WriteTimeout:  time.Second,
		IdleTimeout:   time.Second,
		ShutdownGrace: time.Second,
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return New(cfg, handler, logger.Discard()), ln
}

func TestNew_UsesConfiguredTimeouts(t *testing.T) {
	s := New(config.ServiceConfig{
		Port:          3001,
		ReadTimeout:   2 * time.Second,
		WriteTimeout:  3 * time.Second,
		IdleTimeout:   4 * time.Second,
		ShutdownGrace: 5 * time.Second,
	}, http.NotFoundHandler(), logger.Discard())

	assert.Equal(t, ":3001", s.httpServer.Addr)
	assert.Equal(t, 2*time.Second, s.httpServer.ReadTimeout)
	assert.Equal(t, 3*time.Second, s.httpServer.WriteTimeout)
	assert.Equal(t, 4*time.Second, s.httpServer.IdleTimeout)
	assert.Equal(t, 5*time.Second, s.grace)
}

func TestServe_RunsShutdownHooksAfterDrain(t *testing.T) {
	s, ln := testServer(t)

	var order []string
	s.OnShutdown(func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	s.OnShutdown(func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		defer res.Body.Close()
		body, _ := io.ReadAll(res.Body)
		return string(body) == "ok"
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestServe_ReportsHookErrors(t *testing.T) {
	s, ln := testServer(t)
	errClose := errors.New("close failed")
	s.OnShutdown(func(ctx context.Context) error { return errClose })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Serve(ctx, ln)
	assert.ErrorIs(t, err, errClose)
}
