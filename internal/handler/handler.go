// Package handler exposes the HTTP surface on Fiber and translates the
// service error taxonomy into status codes.
package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/middleware"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

var validate = validator.New()

// respondError maps a service error to its HTTP status. Unknown errors are
// logged and surface as a bare 500.
func respondError(c fiber.Ctx, err error) error {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:  "invalid " + ve.Field,
			Detail: ve.Message,
		})
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not found"})
	}
	if errors.Is(err, apperrors.ErrConflict) {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "already exists"})
	}
	if errors.Is(err, apperrors.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid credentials"})
	}
	if ue, ok := apperrors.AsUpstream(err); ok {
		slog.Warn("upstream failure", "kind", ue.Kind, "status", ue.Status, "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:  "metadata provider unavailable",
			Detail: string(ue.Kind),
		})
	}

	slog.Error("request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "internal server error",
	})
}

// parseBody binds and validates a JSON request body. Failures surface as
// validation errors for respondError to map to 400.
func parseBody(c fiber.Ctx, dst any) error {
	if err := c.Bind().Body(dst); err != nil {
		return apperrors.Validation("body", "malformed request body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.Validation("body", err.Error())
	}
	return nil
}

// movieID parses the :id path parameter.
func movieID(c fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.Validation("id", "must be a positive movie ID")
	}
	return id, nil
}

// authedUserID returns the user id stored by RequireAuth.
func authedUserID(c fiber.Ctx) int64 {
	id, _ := c.Locals(middleware.UserIDKey).(int64)
	return id
}

// optionalUserID returns the user id stored by OptionalAuth, or nil for
// anonymous requests.
func optionalUserID(c fiber.Ctx) *int64 {
	if id, ok := c.Locals(middleware.UserIDKey).(int64); ok {
		return &id
	}
	return nil
}
