// Package service implements the access-control core: the resource
// visibility filter and the access-request lifecycle.
package service

import (
	"context"

	"gatehouse/internal/models"
	"gatehouse/internal/repository"
)

// Authorizer answers capability questions for a viewer. It replaces the
// host framework's ambient authorization state with an explicit contract
// that services receive and tests can stub.
type Authorizer interface {
	// CanEditPackage reports whether the viewer may edit the package and
	// therefore sees its resources unfiltered.
	CanEditPackage(ctx context.Context, viewer *models.Viewer, pkg *models.Package) (bool, error)
	// CanReviewOrg reports whether the viewer may decide access requests
	// scoped to the organization.
	CanReviewOrg(ctx context.Context, viewer *models.Viewer, orgID uint) (bool, error)
}

type orgAuthorizer struct {
	orgs repository.OrgRepository
}

// NewAuthorizer builds the default Authorizer: sysadmins can do anything,
// org admins can edit and review within their organizations.
func NewAuthorizer(orgs repository.OrgRepository) Authorizer {
	return &orgAuthorizer{orgs: orgs}
}

func (a *orgAuthorizer) CanEditPackage(ctx context.Context, viewer *models.Viewer, pkg *models.Package) (bool, error) {
	if viewer.IsAnonymous() {
		return false, nil
	}
	if viewer.Sysadmin {
		return true, nil
	}
	return a.orgs.IsOrgAdmin(ctx, viewer.ID, pkg.OrgID)
}

func (a *orgAuthorizer) CanReviewOrg(ctx context.Context, viewer *models.Viewer, orgID uint) (bool, error) {
	if viewer.IsAnonymous() {
		return false, nil
	}
	if viewer.Sysadmin {
		return true, nil
	}
	return a.orgs.IsOrgAdmin(ctx, viewer.ID, orgID)
}
