package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/cmd/roster/container"
	"github.com/lyzr/coffeeroster/cmd/roster/service"
	"github.com/lyzr/coffeeroster/common/logger"
)

// RotationHandler serves the derived rotation state
type RotationHandler struct {
	rotation *service.RotationService
	log      *logger.Logger
}

// NewRotationHandler creates a new rotation handler
func NewRotationHandler(c *container.Container) *RotationHandler {
	return &RotationHandler{
		rotation: c.RotationService,
		log:      c.Components.Logger,
	}
}

// NextBuyer returns whose turn it is
// GET /api/next-buyer
func (h *RotationHandler) NextBuyer(c echo.Context) error {
	view, err := h.rotation.NextBuyer(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err, service.MsgNextBuyerFailed)
	}
	return c.JSON(http.StatusOK, view)
}

// ReorderHistory returns the latest reorders, newest first
// GET /api/reorder-history
func (h *RotationHandler) ReorderHistory(c echo.Context) error {
	entries, err := h.rotation.ReorderHistory(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err, service.MsgReorderHistoryFailed)
	}
	return c.JSON(http.StatusOK, entries)
}
