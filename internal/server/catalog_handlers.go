package server

import (
	"encoding/json"
	"strings"

	"gatehouse/internal/models"
	"gatehouse/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ShowPackage handles GET /api/packages/:slug
//
// The response carries the package, its resources after visibility
// filtering, and num_resources recomputed from the filtered list.
func (s *Server) ShowPackage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	v := viewer(c)

	pkg, err := s.catalogRepo.GetPackageBySlug(ctx, c.Params("slug"))
	if err != nil {
		return fail(c, err)
	}

	editor, err := s.authz.CanEditPackage(ctx, v, pkg)
	if err != nil {
		return fail(c, err)
	}
	if pkg.Private && !editor {
		// Private packages do not exist for non-editors.
		return fail(c, models.NewNotFoundError("Package", pkg.Slug))
	}

	resources, err := s.catalogRepo.ResourcesOfPackage(ctx, pkg.ID)
	if err != nil {
		return fail(c, err)
	}
	filtered, err := s.visibility.FilterResources(ctx, v, resources, pkg)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"package":       pkg,
		"resources":     filtered,
		"num_resources": len(filtered),
	})
}

// SearchResources handles GET /api/resources/search
func (s *Server) SearchResources(c *fiber.Ctx) error {
	ctx := c.UserContext()

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	results, _, err := s.catalogRepo.SearchResources(ctx, c.Query("q"), limit, offset)
	if err != nil {
		return fail(c, err)
	}

	page, err := s.visibility.FilterSearchResults(ctx, viewer(c), results)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(page)
}

// CheckResourceAccess handles GET /api/resources/:id/access
func (s *Server) CheckResourceAccess(c *fiber.Ctx) error {
	ctx := c.UserContext()
	v := viewer(c)

	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	res, err := s.catalogRepo.GetResourceByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	pkg, err := s.catalogRepo.GetPackageByID(ctx, res.PackageID)
	if err != nil {
		return fail(c, err)
	}

	editor, err := s.authz.CanEditPackage(ctx, v, pkg)
	if err != nil {
		return fail(c, err)
	}
	if pkg.Private && !editor {
		return fail(c, models.NewNotFoundError("Resource", id))
	}

	access, err := s.visibility.CheckAccess(ctx, v, res, pkg)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"resource_id": res.ID,
		"level":       res.EffectiveLevel(),
		"access":      access,
	})
}

// CreatePackage handles POST /api/packages
func (s *Server) CreatePackage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	v := viewer(c)

	var req struct {
		Name            string `json:"name"`
		Slug            string `json:"slug"`
		Description     string `json:"description"`
		OrgSlug         string `json:"org_slug"`
		Private         bool   `json:"private"`
		MaintainerName  string `json:"maintainer_name"`
		MaintainerEmail string `json:"maintainer_email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}
	if req.Name == "" || req.Slug == "" || req.OrgSlug == "" {
		return fail(c, models.NewValidationError("name, slug and org_slug are required"))
	}

	org, err := s.orgRepo.GetBySlug(ctx, req.OrgSlug)
	if err != nil {
		return fail(c, err)
	}

	allowed, err := s.authz.CanReviewOrg(ctx, v, org.ID)
	if err != nil {
		return fail(c, err)
	}
	if !allowed {
		return fail(c, models.NewForbiddenError("Organization admin access required"))
	}

	pkg := &models.Package{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		OrgID:           org.ID,
		Private:         req.Private,
		MaintainerName:  req.MaintainerName,
		MaintainerEmail: req.MaintainerEmail,
	}
	if err := s.catalogRepo.CreatePackage(ctx, pkg); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pkg)
}

// allowedUsersField accepts the allow-list either as a JSON array or as the
// single comma-joined string the legacy editor form submits.
type allowedUsersField []string

func (f *allowedUsersField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return err
		}
		*f = strings.Split(joined, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*f = list
	return nil
}

type resourceInput struct {
	Name         string             `json:"name"`
	Description  *string            `json:"description"`
	URL          *string            `json:"url"`
	Format       *string            `json:"format"`
	Level        *string            `json:"level"`
	AllowedUsers *allowedUsersField `json:"allowed_users"`
}

func parseLevel(raw string) (models.ResourceLevel, error) {
	switch models.ResourceLevel(raw) {
	case models.LevelPublic, models.LevelRestricted:
		return models.ResourceLevel(raw), nil
	}
	return "", models.NewValidationError("level must be one of: public, restricted")
}

// CreateResource handles POST /api/packages/:slug/resources
func (s *Server) CreateResource(c *fiber.Ctx) error {
	ctx := c.UserContext()
	v := viewer(c)

	pkg, err := s.catalogRepo.GetPackageBySlug(ctx, c.Params("slug"))
	if err != nil {
		return fail(c, err)
	}

	editor, err := s.authz.CanEditPackage(ctx, v, pkg)
	if err != nil {
		return fail(c, err)
	}
	if !editor {
		return fail(c, models.NewForbiddenError("Package editor access required"))
	}

	var req resourceInput
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}
	if req.Name == "" {
		return fail(c, models.NewValidationError("name is required"))
	}

	res := &models.Resource{
		PackageID: pkg.ID,
		Name:      req.Name,
		Level:     models.LevelPublic,
	}
	if req.Description != nil {
		res.Description = *req.Description
	}
	if req.URL != nil {
		res.URL = req.URL
	}
	if req.Format != nil {
		res.Format = *req.Format
	}
	if req.Level != nil {
		level, err := parseLevel(*req.Level)
		if err != nil {
			return fail(c, err)
		}
		res.Level = level
	}
	if req.AllowedUsers != nil {
		users, err := validation.NormalizeAllowedUsers(*req.AllowedUsers)
		if err != nil {
			return fail(c, models.NewValidationError(err.Error()))
		}
		res.AllowedUsers = users
	}

	if err := s.catalogRepo.CreateResource(ctx, res); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// UpdateResource handles PATCH /api/resources/:id
//
// Partial update for editors: level, allowed_users, url, name, description
// and format. Decisions mutate the allow-list through the request lifecycle
// instead; this endpoint is the manual override.
func (s *Server) UpdateResource(c *fiber.Ctx) error {
	ctx := c.UserContext()
	v := viewer(c)

	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	res, err := s.catalogRepo.GetResourceByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	pkg, err := s.catalogRepo.GetPackageByID(ctx, res.PackageID)
	if err != nil {
		return fail(c, err)
	}

	editor, err := s.authz.CanEditPackage(ctx, v, pkg)
	if err != nil {
		return fail(c, err)
	}
	if !editor {
		return fail(c, models.NewForbiddenError("Package editor access required"))
	}

	var req resourceInput
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}

	if req.Name != "" {
		res.Name = req.Name
	}
	if req.Description != nil {
		res.Description = *req.Description
	}
	if req.URL != nil {
		res.URL = req.URL
	}
	if req.Format != nil {
		res.Format = *req.Format
	}
	if req.Level != nil {
		level, err := parseLevel(*req.Level)
		if err != nil {
			return fail(c, err)
		}
		res.Level = level
	}
	if req.AllowedUsers != nil {
		users, err := validation.NormalizeAllowedUsers(*req.AllowedUsers)
		if err != nil {
			return fail(c, models.NewValidationError(err.Error()))
		}
		res.AllowedUsers = users
	}

	if err := s.catalogRepo.UpdateResource(ctx, res); err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}
