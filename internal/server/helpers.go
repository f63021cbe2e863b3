package server

import (
	"strconv"

	"gatehouse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// viewer returns the authenticated viewer from the request context, or nil
// for anonymous requests on AuthOptional routes.
func viewer(c *fiber.Ctx) *models.Viewer {
	if v, ok := c.Locals("viewer").(*models.Viewer); ok {
		return v
	}
	return nil
}

// parseID parses a numeric path parameter.
func parseID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid " + name + " parameter")
	}
	return uint(id), nil
}

// fail maps a service error to its HTTP status and writes the standard
// error response.
func fail(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}
