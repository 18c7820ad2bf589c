package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, out_of_bounds, validation_error, store_unavailable, ...
	Message   string `json:"message"` // Human-readable message
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errFromDomain maps a service error onto the status code a client can act on.
func errFromDomain(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrOutOfBounds):
		return newError(c, fiber.StatusBadRequest, "out_of_bounds", domain.ErrOutOfBounds.Error())
	case errors.As(err, &ve):
		reqID, _ := c.Locals("requestid").(string)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(APIError{
			Status:    fiber.StatusUnprocessableEntity,
			Code:      "validation_error",
			Message:   ve.Error(),
			Field:     ve.Field,
			RequestID: reqID,
		})
	case errors.Is(err, domain.ErrStoreUnavailable):
		LoggerFromCtx(c.UserContext()).Error("store unavailable", "path", c.Path(), "error", err)
		return newError(c, fiber.StatusServiceUnavailable, "store_unavailable", "storage backend unavailable, retry later")
	default:
		slog.Error("unhandled error", "path", c.Path(), "error", err)
		return newError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
	}
}
