package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/coffeeroster/cmd/roster/container"
	"github.com/lyzr/coffeeroster/cmd/roster/routes"
	"github.com/lyzr/coffeeroster/common/bootstrap"
	"github.com/lyzr/coffeeroster/common/logger"
	"github.com/lyzr/coffeeroster/common/server"
)

const serviceName = "roster"

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, DB, redis, cache)
	components, err := bootstrap.Setup(ctx, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap %s: %v\n", serviceName, err)
		os.Exit(1)
	}

	// Initialize service container (all services created once)
	serviceContainer := container.NewContainer(components)

	e := setupEcho()
	setupMiddleware(e)
	routes.Register(e, serviceContainer)

	// Bootstrap cleanup runs once the listener has drained
	srv := server.New(components.Config.Service, e, components.Logger)
	srv.OnShutdown(components.Shutdown)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), logger.RequestIDKey, id)))
		},
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
}
