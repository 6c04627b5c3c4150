package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/cmd/roster/container"
	"github.com/lyzr/coffeeroster/cmd/roster/service"
	"github.com/lyzr/coffeeroster/common/logger"
)

// ParticipantHandler handles roster membership and ordering
type ParticipantHandler struct {
	participants *service.ParticipantService
	rotation     *service.RotationService
	log          *logger.Logger
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(c *container.Container) *ParticipantHandler {
	return &ParticipantHandler{
		participants: c.ParticipantService,
		rotation:     c.RotationService,
		log:          c.Components.Logger,
	}
}

type participantRequest struct {
	Name string `json:"name"`
}

type reorderRequest struct {
	ParticipantIDs json.RawMessage `json:"participantIds"`
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// List returns participants in rotation order
// GET /api/participants
func (h *ParticipantHandler) List(c echo.Context) error {
	participants, err := h.participants.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err, "Failed to fetch participants")
	}
	return c.JSON(http.StatusOK, participants)
}

// Create adds a participant at the end of the rotation
// POST /api/participants
func (h *ParticipantHandler) Create(c echo.Context) error {
	var req participantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	participant, err := h.participants.Add(c.Request().Context(), req.Name)
	if err != nil {
		return respondError(c, h.log, err, "Failed to add participant")
	}
	return c.JSON(http.StatusCreated, participant)
}

// Reorder replaces the rotation order
// PUT /api/participants/reorder
func (h *ParticipantHandler) Reorder(c echo.Context) error {
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	var ids []int64
	if len(req.ParticipantIDs) == 0 || req.ParticipantIDs[0] != '[' || json.Unmarshal(req.ParticipantIDs, &ids) != nil {
		return badRequest(c, "participantIds must be an array")
	}

	participants, err := h.rotation.Reorder(c.Request().Context(), ids)
	if err != nil {
		return respondError(c, h.log, err, service.MsgReorderFailed)
	}
	return c.JSON(http.StatusOK, participants)
}

// Update renames a participant
// PUT /api/participants/:id
func (h *ParticipantHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid participant ID")
	}

	var req participantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	participant, err := h.participants.Update(c.Request().Context(), id, req.Name)
	if err != nil {
		return respondError(c, h.log, err, "Failed to update participant")
	}
	return c.JSON(http.StatusOK, participant)
}

// Patch applies a JSON merge patch to a participant
// PATCH /api/participants/:id
func (h *ParticipantHandler) Patch(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid participant ID")
	}

	patch, err := io.ReadAll(c.Request().Body)
	if err != nil || len(patch) == 0 {
		return badRequest(c, "Merge patch body is required")
	}

	participant, err := h.participants.Patch(c.Request().Context(), id, patch)
	if err != nil {
		return respondError(c, h.log, err, "Failed to update participant")
	}
	return c.JSON(http.StatusOK, participant)
}

// Delete removes a participant without purchase history
// DELETE /api/participants/:id
func (h *ParticipantHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid participant ID")
	}

	participant, err := h.participants.Delete(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to delete participant")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "Participant deleted successfully",
		"participant": participant,
	})
}
