package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/cmd/roster/container"
	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/cmd/roster/service"
	"github.com/lyzr/coffeeroster/common/logger"
)

// PurchaseHandler handles the purchase ledger
type PurchaseHandler struct {
	purchases *service.PurchaseService
	rotation  *service.RotationService
	log       *logger.Logger
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(c *container.Container) *PurchaseHandler {
	return &PurchaseHandler{
		purchases: c.PurchaseService,
		rotation:  c.RotationService,
		log:       c.Components.Logger,
	}
}

type purchaseRequest struct {
	ParticipantID *int64 `json:"participant_id"`
	BuyerName     string `json:"buyer_name"`
}

// List returns coffee and external purchases merged, newest first
// GET /api/purchases
func (h *PurchaseHandler) List(c echo.Context) error {
	purchases, err := h.purchases.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err, "Failed to fetch purchases")
	}
	return c.JSON(http.StatusOK, purchases)
}

// Create records a purchase by a participant or, with buyer_name, by an outsider
// POST /api/purchases
func (h *PurchaseHandler) Create(c echo.Context) error {
	var req purchaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx := c.Request().Context()
	switch {
	case req.ParticipantID != nil:
		purchase, err := h.purchases.RecordParticipantPurchase(ctx, *req.ParticipantID)
		if err != nil {
			return respondError(c, h.log, err, "Failed to record purchase")
		}
		return c.JSON(http.StatusCreated, purchase)
	case strings.TrimSpace(req.BuyerName) != "":
		purchase, err := h.purchases.RecordExternalPurchase(ctx, req.BuyerName)
		if err != nil {
			return respondError(c, h.log, err, "Failed to record purchase")
		}
		return c.JSON(http.StatusCreated, purchase)
	default:
		return badRequest(c, service.MsgBuyerRequired)
	}
}

// CreateOutOfOrder records a purchase by someone who was not next and
// reconciles the rotation
// POST /api/purchases/out-of-order
func (h *PurchaseHandler) CreateOutOfOrder(c echo.Context) error {
	var req service.OutOfOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.rotation.RecordOutOfOrderPurchase(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err, service.MsgOutOfOrderFailed)
	}
	return c.JSON(http.StatusCreated, result)
}

// Clear deletes the whole purchase history
// DELETE /api/purchases
func (h *PurchaseHandler) Clear(c echo.Context) error {
	deleted, err := h.purchases.ClearAll(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err, "Failed to delete purchase history")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "All purchase history (regular and external) deleted successfully",
		"deletedCount": deleted,
	})
}

// Delete removes one purchase
// DELETE /api/purchases/:id?type=coffee|external
func (h *PurchaseHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return badRequest(c, "Valid purchase ID is required")
	}
	kind := models.PurchaseKind(c.QueryParam("type"))

	if err := h.purchases.DeleteOne(c.Request().Context(), id, kind); err != nil {
		return respondError(c, h.log, err, "Failed to delete purchase")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": service.PurchaseKindLabel(kind) + " purchase deleted successfully",
	})
}
