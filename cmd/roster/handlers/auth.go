package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/cmd/roster/container"
	"github.com/lyzr/coffeeroster/common/auth"
	"github.com/lyzr/coffeeroster/common/logger"
)

// loginLimitResetter clears a client's failed-attempt counter
type loginLimitResetter interface {
	ResetLoginLimit(ctx context.Context, clientIP string) error
}

// AuthHandler handles the shared-password login
type AuthHandler struct {
	passwords *auth.PasswordChecker
	tokens    *auth.TokenIssuer
	limiter   loginLimitResetter
	log       *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(c *container.Container) *AuthHandler {
	h := &AuthHandler{
		passwords: c.Passwords,
		tokens:    c.Tokens,
		log:       c.Components.Logger,
	}
	if c.Limiter != nil {
		h.limiter = c.Limiter
	}
	return h
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the shared password and, when token signing is configured,
// returns a session token for the Authorization header
// POST /api/login
func (h *AuthHandler) Login(c echo.Context) error {
	if !h.passwords.Configured() {
		h.log.Error("login attempted but no shared password is configured")
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Login system configuration error.",
		})
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if !h.passwords.Check(req.Password) {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error": "Invalid password.",
		})
	}

	if h.limiter != nil {
		if err := h.limiter.ResetLoginLimit(c.Request().Context(), c.RealIP()); err != nil {
			h.log.Warn("failed to reset login rate limit", "error", err)
		}
	}

	resp := map[string]interface{}{
		"authenticated": true,
		"message":       "Login successful.",
	}
	if h.tokens != nil {
		token, err := h.tokens.Issue()
		if err != nil {
			h.log.Error("failed to issue session token", "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"error": "Login system configuration error.",
			})
		}
		resp["token"] = token
	}
	return c.JSON(http.StatusOK, resp)
}
