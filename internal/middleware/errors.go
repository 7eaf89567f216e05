package middleware

import (
	"errors"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// StatusOf returns the HTTP status an error is reported with.
func StatusOf(err error) int {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Status()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// NewErrorHandler returns the app-wide fiber error handler. With detailed
// set, transient failures expose the underlying error text.
func NewErrorHandler(detailed bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusOf(err)
		body := fiber.Map{}

		var ae *apperr.Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &ae):
			body["message"] = ae.Message
			if ae.Kind == apperr.KindTransient {
				body["message"] = "Server error"
				if detailed {
					body["error"] = err.Error()
				}
			}
			if len(ae.Details) > 0 {
				body["errors"] = ae.Details
			}
		case errors.As(err, &fe):
			body["message"] = fe.Message
		default:
			body["message"] = "Server error"
			if detailed {
				body["error"] = err.Error()
			}
		}

		if code >= fiber.StatusInternalServerError {
			logger.Ctx(c.UserContext()).Error().
				Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Int("status", code).
				Msg("HTTP error")
		}

		return c.Status(code).JSON(body)
	}
}

// NotFound is the catch-all handler for unknown routes.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"message": "Route not found",
	})
}
