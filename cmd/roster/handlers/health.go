package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/cmd/roster/container"
	"github.com/lyzr/coffeeroster/common/bootstrap"
	"github.com/lyzr/coffeeroster/common/logger"
)

// HealthHandler reports readiness of the database and Redis
type HealthHandler struct {
	components *bootstrap.Components
	log        *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(c *container.Container) *HealthHandler {
	return &HealthHandler{
		components: c.Components,
		log:        c.Components.Logger,
	}
}

// Health answers 200 when every configured dependency is reachable
// GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.components.Health(ctx); err != nil {
		h.log.Warn("health check failed", "error", err)
		message := "Database not ready"
		if errors.Is(err, bootstrap.ErrRedisUnavailable) {
			message = "Redis not ready"
		}
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "error",
			"message": message,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
