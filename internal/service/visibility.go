package service

import (
	"context"
	"strings"

	"gatehouse/internal/models"
	"gatehouse/internal/repository"
)

// Visibility decides what a viewer may see of a resource. Filtering is a
// pure function of the viewer, the resource and its package, plus one
// capability check; it never mutates stored state.
type Visibility struct {
	authz   Authorizer
	catalog repository.CatalogRepository
}

// NewVisibility returns a visibility filter over the given authorizer and catalog.
func NewVisibility(authz Authorizer, catalog repository.CatalogRepository) *Visibility {
	return &Visibility{authz: authz, catalog: catalog}
}

// maskMark is the fixed redaction infix for allow-list entries.
const maskMark = "*****"

// MaskUsername redacts an allow-list entry to its first three and last two
// characters. Shorter names are masked best-effort, mirroring how they were
// historically truncated, and never cause an error.
func MaskUsername(name string) string {
	prefix := name
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	suffix := name
	if len(suffix) > 2 {
		suffix = suffix[len(suffix)-2:]
	}
	return prefix + maskMark + suffix
}

// maskAllowedUsers redacts every entry except the viewer's own username.
// Blank entries are dropped.
func maskAllowedUsers(allowed models.StringList, viewerUsername string) models.StringList {
	masked := make(models.StringList, 0, len(allowed))
	for _, entry := range allowed {
		name := strings.TrimSpace(entry)
		if name == "" {
			continue
		}
		if name == viewerUsername {
			masked = append(masked, name)
		} else {
			masked = append(masked, MaskUsername(name))
		}
	}
	return masked
}

// FilterResource returns the view of a resource the viewer is entitled to:
//   - package editors see the resource unmodified;
//   - a private package hides the resource entirely (nil, NotFound);
//   - public resources pass through;
//   - restricted resources lose their URL and have the allow-list redacted,
//     keeping only the viewer's own username readable.
func (v *Visibility) FilterResource(ctx context.Context, viewer *models.Viewer, res *models.Resource, pkg *models.Package) (*models.Resource, error) {
	editor, err := v.authz.CanEditPackage(ctx, viewer, pkg)
	if err != nil {
		return nil, err
	}
	if editor {
		return res, nil
	}

	if pkg.Private {
		return nil, models.NewNotFoundError("Resource", res.ID)
	}

	if res.EffectiveLevel() == models.LevelPublic {
		return res, nil
	}

	var viewerUsername string
	if !viewer.IsAnonymous() {
		viewerUsername = viewer.Username
	}

	filtered := *res
	filtered.URL = nil
	filtered.Level = models.LevelRestricted
	filtered.AllowedUsers = maskAllowedUsers(res.AllowedUsers, viewerUsername)
	return &filtered, nil
}

// FilterResources maps FilterResource over a list, dropping resources the
// viewer may not know exist.
func (v *Visibility) FilterResources(ctx context.Context, viewer *models.Viewer, resources []models.Resource, pkg *models.Package) ([]models.Resource, error) {
	filtered := make([]models.Resource, 0, len(resources))
	for i := range resources {
		res, err := v.FilterResource(ctx, viewer, &resources[i], pkg)
		if err != nil {
			if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeNotFound {
				continue
			}
			return nil, err
		}
		filtered = append(filtered, *res)
	}
	return filtered, nil
}

// SearchPage is a filtered page of search results. Count reflects the
// entries the viewer can see, which may undercount the engine's total when
// private-package resources were dropped; that inconsistency is inherited
// behavior and deliberately not papered over here.
type SearchPage struct {
	Count   int               `json:"count"`
	Results []models.Resource `json:"results"`
}

// FilterSearchResults applies FilterResource across a search result page.
// Packages are resolved once per page and reused across their resources.
func (v *Visibility) FilterSearchResults(ctx context.Context, viewer *models.Viewer, results []models.Resource) (*SearchPage, error) {
	pkgs := make(map[uint]*models.Package, 4)

	filtered := make([]models.Resource, 0, len(results))
	for i := range results {
		res := &results[i]
		pkg, ok := pkgs[res.PackageID]
		if !ok {
			var err error
			pkg, err = v.catalog.GetPackageByID(ctx, res.PackageID)
			if err != nil {
				if appErr, isApp := err.(*models.AppError); isApp && appErr.Code == models.CodeNotFound {
					// Orphaned resource; drop it from the page.
					pkgs[res.PackageID] = nil
					continue
				}
				return nil, err
			}
			pkgs[res.PackageID] = pkg
		}
		if pkg == nil {
			continue
		}

		out, err := v.FilterResource(ctx, viewer, res, pkg)
		if err != nil {
			if appErr, isApp := err.(*models.AppError); isApp && appErr.Code == models.CodeNotFound {
				continue
			}
			return nil, err
		}
		filtered = append(filtered, *out)
	}

	return &SearchPage{Count: len(filtered), Results: filtered}, nil
}

// CheckAccess reports whether the viewer can read the resource content:
// public level, an allow-list entry of their own, or edit capability.
func (v *Visibility) CheckAccess(ctx context.Context, viewer *models.Viewer, res *models.Resource, pkg *models.Package) (bool, error) {
	editor, err := v.authz.CanEditPackage(ctx, viewer, pkg)
	if err != nil {
		return false, err
	}
	if editor {
		return true, nil
	}
	if pkg.Private {
		return false, nil
	}
	if res.EffectiveLevel() == models.LevelPublic {
		return true, nil
	}
	if viewer.IsAnonymous() {
		return false, nil
	}
	for _, name := range res.AllowedUsers {
		if strings.TrimSpace(name) == viewer.Username {
			return true, nil
		}
	}
	return false, nil
}
