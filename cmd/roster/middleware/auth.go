package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/common/auth"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// SessionKey is the context key for the verified session claims
	SessionKey ContextKey = "session"
)

// TokenVerifier checks a bearer token
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireSession rejects requests without a valid bearer token issued by
// POST /api/login and stores the claims in the echo context.
//
// Usage:
//
//	api := e.Group("/api")
//	api.Use(middleware.RequireSession(issuer))
//
// Accessing in handlers:
//
//	claims := middleware.GetSession(c)
func RequireSession(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "Authentication required",
				})
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "Invalid or expired session",
				})
			}

			c.Set(string(SessionKey), claims)
			return next(c)
		}
	}
}

// GetSession retrieves the session claims from the request context
// Returns nil if the route is not gated
func GetSession(c echo.Context) *auth.Claims {
	claims, _ := c.Get(string(SessionKey)).(*auth.Claims)
	return claims
}
