package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/common/ratelimit"
)

// LoginLimiter is the slice of ratelimit.RateLimiter used by the middleware
type LoginLimiter interface {
	CheckLoginLimit(ctx context.Context, clientIP string, limit int64) (*ratelimit.RateLimitResult, error)
}

// LoginRateLimitMiddleware throttles password attempts per client IP.
// A nil limiter or a non-positive limit disables the check. Limiter errors
// fail open so a Redis outage never locks everybody out.
func LoginRateLimitMiddleware(limiter LoginLimiter, limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil || limit <= 0 {
				return next(c)
			}

			result, err := limiter.CheckLoginLimit(c.Request().Context(), c.RealIP(), limit)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error": "Too many login attempts. Please try again later.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window":              "60 seconds",
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
