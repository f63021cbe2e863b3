package server

import (
	"gatehouse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RequestDashboard handles GET /api/admin/access-requests
//
// Sysadmins see every request; organization admins see the requests scoped
// to their organizations; everyone else is forbidden.
func (s *Server) RequestDashboard(c *fiber.Ctx) error {
	requests, err := s.requests.Dashboard(c.UserContext(), viewer(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"count":    len(requests),
		"requests": requests,
	})
}

// DecideRequest handles POST /api/admin/access-requests/:id/decision
func (s *Server) DecideRequest(c *fiber.Ctx) error {
	var req struct {
		Action           string `json:"action"`
		RejectionMessage string `json:"rejection_message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}

	result, err := s.requests.Decide(c.UserContext(), viewer(c), c.Params("id"),
		models.DecisionAction(req.Action), req.RejectionMessage)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

// DeleteRequest handles DELETE /api/admin/access-requests/:id
func (s *Server) DeleteRequest(c *fiber.Ctx) error {
	if err := s.requests.Delete(c.UserContext(), viewer(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Access request deleted"})
}
