package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/cmd/roster/service"
	"github.com/lyzr/coffeeroster/common/logger"
)

// respondError writes the client-facing form of err. Server-side failures
// are logged in full and answered with the generic fallback message.
func respondError(c echo.Context, log *logger.Logger, err error, fallback string) error {
	status, msg := service.HTTPStatus(err, fallback)
	if status >= http.StatusInternalServerError {
		log.WithContext(c.Request().Context()).Error(fallback,
			"error", err,
			"method", c.Request().Method,
			"path", c.Path(),
		)
	}
	return c.JSON(status, map[string]interface{}{
		"error": msg,
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error": msg,
	})
}
