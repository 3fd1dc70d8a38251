package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ErrorHandler is installed as echo's HTTPErrorHandler.  Handlers answer
// expected failures themselves and return unexpected errors; those end up
// here, are logged in full against a correlation id, and reach the client
// only as a generic message carrying that id.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		correlationID := c.Response().Header().Get(echo.HeaderXRequestID)
		if correlationID == "" {
			correlationID = uuid.NewString()
			c.Response().Header().Set(echo.HeaderXRequestID, correlationID)
		}

		code := http.StatusInternalServerError
		msg := "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < http.StatusInternalServerError {
				if m, ok := he.Message.(string); ok {
					msg = m
				} else {
					msg = http.StatusText(code)
				}
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				"correlation_id", correlationID,
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, echo.Map{"error": msg, "correlationId": correlationID})
		}
		if werr != nil {
			logger.Error("write error response", "correlation_id", correlationID, "error", werr)
		}
	}
}
