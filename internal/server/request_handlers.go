package server

import (
	"gatehouse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SubmitRequest handles POST /api/access-requests
func (s *Server) SubmitRequest(c *fiber.Ctx) error {
	var req struct {
		ResourceID       uint   `json:"resource_id"`
		Message          string `json:"message"`
		UserOrganization string `json:"user_organization"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}
	if req.ResourceID == 0 {
		return fail(c, models.NewValidationError("resource_id is required"))
	}

	result, err := s.requests.Submit(c.UserContext(), viewer(c),
		req.ResourceID, req.Message, req.UserOrganization)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// MyRequests handles GET /api/access-requests/me
func (s *Server) MyRequests(c *fiber.Ctx) error {
	requests, err := s.requests.ListForViewer(c.UserContext(), viewer(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"count":    len(requests),
		"requests": requests,
	})
}

// GetRequest handles GET /api/access-requests/:id
func (s *Server) GetRequest(c *fiber.Ctx) error {
	request, err := s.requests.GetByID(c.UserContext(), viewer(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(request)
}

// UpdateRequestMessage handles PUT /api/access-requests/:id/message
func (s *Server) UpdateRequestMessage(c *fiber.Ctx) error {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}

	request, err := s.requests.UpdateMessage(c.UserContext(), viewer(c),
		c.Params("id"), req.Message)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(request)
}
