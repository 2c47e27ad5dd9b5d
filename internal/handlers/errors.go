package handlers

import (
	"errors"

	"lapak/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps ledger error kinds to HTTP status codes. Anything
// unrecognized is a 500, including the fatal reconciliation error, which
// must reach the operator rather than look like a caller mistake.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrAmountMismatch),
		errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrProductDeleted),
		errors.Is(err, models.ErrAlreadyReserved),
		errors.Is(err, models.ErrInvalidState):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// errorJSON renders the standard error body used by all handlers.
func errorJSON(c *fiber.Ctx, message string, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
