package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gatehouse/internal/cache"
	"gatehouse/internal/middleware"
	"gatehouse/internal/models"
	"gatehouse/internal/notifications"
	"gatehouse/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SiteInfo carries portal metadata included in notification emails.
type SiteInfo struct {
	Title string
	URL   string
}

// Requests orchestrates the access-request lifecycle: submission with
// duplicate-pending prevention, admin decisions, and the notification side
// effects around both.
type Requests struct {
	db         *gorm.DB
	users      repository.UserRepository
	orgs       repository.OrgRepository
	catalog    repository.CatalogRepository
	requests   repository.RequestRepository
	authz      Authorizer
	dispatcher *notifications.Dispatcher
	site       SiteInfo
	logger     *slog.Logger
}

// NewRequests wires the request lifecycle controller.
func NewRequests(
	db *gorm.DB,
	users repository.UserRepository,
	orgs repository.OrgRepository,
	catalog repository.CatalogRepository,
	requests repository.RequestRepository,
	authz Authorizer,
	dispatcher *notifications.Dispatcher,
	site SiteInfo,
) *Requests {
	return &Requests{
		db:         db,
		users:      users,
		orgs:       orgs,
		catalog:    catalog,
		requests:   requests,
		authz:      authz,
		dispatcher: dispatcher,
		site:       site,
		logger:     middleware.Logger,
	}
}

// SubmitResult reports the outcome of a submission. NotificationSent is
// best-effort: the request persists even when every mail failed.
type SubmitResult struct {
	Request          *models.AccessRequest `json:"request"`
	NotificationSent bool                  `json:"notification_sent"`
	Message          string                `json:"message"`
}

// Submit validates and persists a new access request, then notifies the
// organization's admins and the sysadmins.
func (s *Requests) Submit(ctx context.Context, viewer *models.Viewer, resourceID uint, message, userOrganization string) (*SubmitResult, error) {
	if viewer.IsAnonymous() {
		return nil, models.NewUnauthorizedError("You must be logged in to request access")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		middleware.RequestsSubmitted.WithLabelValues("rejected_input").Inc()
		return nil, models.NewValidationError("message is required")
	}

	res, err := s.catalog.GetResourceByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	pkg, err := s.catalog.GetPackageByID(ctx, res.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg.Private {
		// A private package is indistinguishable from a missing one.
		return nil, models.NewNotFoundError("Resource", resourceID)
	}

	request := &models.AccessRequest{
		PackageID:  pkg.ID,
		ResourceID: res.ID,
		OrgID:      pkg.OrgID,
		UserID:     viewer.ID,
		Message:    message,
		Status:     models.RequestStatusPending,
	}

	// The duplicate-pending check and the insert share one transaction so
	// two racing submissions cannot both pass the check.
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := lockForUpdate(tx).Model(&models.AccessRequest{}).
			Where("resource_id = ? AND user_id = ? AND status = ?",
				res.ID, viewer.ID, models.RequestStatusPending).
			Count(&pending).Error; err != nil {
			return models.NewInternalError(err)
		}
		if pending > 0 {
			return models.NewConflictError("A pending request already exists for this resource")
		}
		if err := tx.Create(request).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if txErr != nil {
		var appErr *models.AppError
		if errors.As(txErr, &appErr) && appErr.Code == models.CodeConflict {
			middleware.RequestsSubmitted.WithLabelValues("conflict").Inc()
		}
		return nil, txErr
	}
	middleware.RequestsSubmitted.WithLabelValues("created").Inc()

	notice, admins := s.buildSubmitNotice(ctx, request, res, pkg, userOrganization)
	sent := s.dispatcher.RequestSubmitted(ctx, admins, notice)

	msg := "Your request was sent successfully"
	if !sent {
		msg = "Your request was registered but the notification could not be sent"
	}
	return &SubmitResult{Request: request, NotificationSent: sent, Message: msg}, nil
}

// buildSubmitNotice assembles the notification payload and its recipients:
// the organization's admins merged with the sysadmins, deduplicated.
func (s *Requests) buildSubmitNotice(ctx context.Context, request *models.AccessRequest, res *models.Resource, pkg *models.Package, userOrganization string) (notifications.AccessRequestNotice, []models.User) {
	notice := notifications.AccessRequestNotice{
		RequestID:        request.ID,
		UserID:           request.UserID,
		UserOrganization: userOrganization,
		ResourceID:       res.ID,
		ResourceName:     res.Name,
		PackageID:        pkg.ID,
		PackageName:      pkg.Name,
		OrgID:            pkg.OrgID,
		Message:          request.Message,
		SiteTitle:        s.site.Title,
		SiteURL:          s.site.URL,
	}

	if requester, err := s.users.GetByID(ctx, request.UserID); err == nil {
		notice.UserName = requester.Name()
		notice.UserEmail = requester.Email
	} else {
		s.logger.WarnContext(ctx, "requester lookup failed for notification",
			slog.String("request_id", request.ID),
			slog.Any("user_id", request.UserID),
		)
	}

	orgAdmins, err := s.orgs.AdminsOf(ctx, pkg.OrgID)
	if err != nil {
		s.logger.WarnContext(ctx, "org admin lookup failed for notification",
			slog.String("request_id", request.ID),
			slog.Any("org_id", pkg.OrgID),
		)
	}
	sysadmins, err := s.users.ListSysadmins(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "sysadmin lookup failed for notification",
			slog.String("request_id", request.ID),
		)
	}

	seen := make(map[uint]bool, len(orgAdmins)+len(sysadmins))
	admins := make([]models.User, 0, len(orgAdmins)+len(sysadmins))
	for _, u := range append(orgAdmins, sysadmins...) {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		admins = append(admins, u)
	}
	return notice, admins
}

// DecideResult reports the outcome of an admin decision.
type DecideResult struct {
	Request          *models.AccessRequest `json:"request"`
	NotificationSent bool                  `json:"notification_sent"`
	Message          string                `json:"message"`
}

// Decide applies an admin verdict to a request. The status update and the
// allow-list mutation commit in one transaction; the requester notification
// happens after commit and never unwinds the decision.
//
// Approve and reject require the request to still be pending. Revoke is
// accepted from any status so an already-approved grant can be withdrawn;
// the upstream behavior of also revoking rejected requests is preserved.
func (s *Requests) Decide(ctx context.Context, admin *models.Viewer, requestID string, action models.DecisionAction, rejectionMessage string) (*DecideResult, error) {
	if admin.IsAnonymous() {
		return nil, models.NewUnauthorizedError("You must be logged in to review requests")
	}

	newStatus, ok := action.Status()
	if !ok {
		return nil, models.NewValidationError("action must be one of: approve, reject, revoke")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.authz.CanReviewOrg(ctx, admin, request.OrgID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewForbiddenError("Sysadmin or organization admin access required")
	}

	var requester *models.User
	var resource models.Resource

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.AccessRequest
		if err := lockForUpdate(tx).
			Where("id = ?", requestID).
			First(&locked).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Access request", requestID)
			}
			return models.NewInternalError(err)
		}

		if action != models.ActionRevoke && !locked.IsPending() {
			return models.NewValidationError("access request is not pending")
		}

		var user models.User
		if err := tx.First(&user, locked.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", locked.UserID)
			}
			return models.NewInternalError(err)
		}
		requester = &user

		if err := lockForUpdate(tx).
			First(&resource, locked.ResourceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Resource", locked.ResourceID)
			}
			return models.NewInternalError(err)
		}

		switch action {
		case models.ActionApprove:
			locked.RejectionMessage = ""
			if !containsUser(resource.AllowedUsers, user.Username) {
				// Newly granted users go first, matching historical order.
				resource.AllowedUsers = append(models.StringList{user.Username}, resource.AllowedUsers...)
				if err := tx.Save(&resource).Error; err != nil {
					return models.NewInternalError(err)
				}
			}
		case models.ActionReject:
			locked.RejectionMessage = strings.TrimSpace(rejectionMessage)
		case models.ActionRevoke:
			if containsUser(resource.AllowedUsers, user.Username) {
				resource.AllowedUsers = removeUser(resource.AllowedUsers, user.Username)
				if err := tx.Save(&resource).Error; err != nil {
					return models.NewInternalError(err)
				}
			}
		}

		locked.Status = newStatus
		locked.DecidedByUserID = &admin.ID
		if err := tx.Save(&locked).Error; err != nil {
			return models.NewInternalError(err)
		}

		*request = locked
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	cache.InvalidateResource(ctx, resource.ID)
	middleware.RequestDecisions.WithLabelValues(string(action)).Inc()

	sent := s.notifyDecision(ctx, request, requester, &resource, action)

	return &DecideResult{
		Request:          request,
		NotificationSent: sent,
		Message:          fmt.Sprintf("Request %s %s successfully", request.ID, newStatus),
	}, nil
}

func (s *Requests) notifyDecision(ctx context.Context, request *models.AccessRequest, requester *models.User, resource *models.Resource, action models.DecisionAction) bool {
	notice := notifications.AccessRequestNotice{
		RequestID:        request.ID,
		UserID:           request.UserID,
		ResourceID:       request.ResourceID,
		ResourceName:     resource.Name,
		PackageID:        request.PackageID,
		OrgID:            request.OrgID,
		RejectionMessage: request.RejectionMessage,
		SiteTitle:        s.site.Title,
		SiteURL:          s.site.URL,
	}
	if requester != nil {
		notice.UserName = requester.Name()
		notice.UserEmail = requester.Email
	}

	if pkg, err := s.catalog.GetPackageByID(ctx, request.PackageID); err == nil {
		notice.PackageName = pkg.Name
		notice.ResourceLink = fmt.Sprintf("%s/dataset/%s/resource/%d", s.site.URL, pkg.Slug, resource.ID)
	}

	kind := notifications.KindRequestGranted
	switch action {
	case models.ActionReject:
		kind = notifications.KindRequestRejected
	case models.ActionRevoke:
		kind = notifications.KindRequestRevoked
	}
	return s.dispatcher.Decision(ctx, kind, notice)
}

// ListForViewer returns the viewer's own requests.
func (s *Requests) ListForViewer(ctx context.Context, viewer *models.Viewer) ([]models.AccessRequest, error) {
	if viewer.IsAnonymous() {
		return nil, models.NewUnauthorizedError("You must be logged in to view access requests")
	}
	return s.requests.ListByUser(ctx, viewer.ID)
}

// Dashboard returns the requests the viewer may review: everything for
// sysadmins, the viewer's administered organizations otherwise.
func (s *Requests) Dashboard(ctx context.Context, viewer *models.Viewer) ([]models.AccessRequest, error) {
	if viewer.IsAnonymous() {
		return nil, models.NewUnauthorizedError("You must be logged in to view access requests")
	}
	if viewer.Sysadmin {
		return s.requests.ListAll(ctx)
	}
	orgIDs, err := s.orgs.OrgIDsAdministeredBy(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if len(orgIDs) == 0 {
		return nil, models.NewForbiddenError("You do not have permission to view access requests")
	}
	return s.requests.ListByOrgs(ctx, orgIDs)
}

// GetByID returns a single request if the viewer owns it or may review it.
func (s *Requests) GetByID(ctx context.Context, viewer *models.Viewer, requestID string) (*models.AccessRequest, error) {
	if viewer.IsAnonymous() {
		return nil, models.NewUnauthorizedError("You must be logged in to view access requests")
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.UserID == viewer.ID {
		return request, nil
	}
	allowed, err := s.authz.CanReviewOrg(ctx, viewer, request.OrgID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewForbiddenError("You do not have permission to view this request")
	}
	return request, nil
}

// UpdateMessage lets the requester amend the free-text message while the
// request is still pending.
func (s *Requests) UpdateMessage(ctx context.Context, viewer *models.Viewer, requestID, message string) (*models.AccessRequest, error) {
	if viewer.IsAnonymous() {
		return nil, models.NewUnauthorizedError("You must be logged in to update a request")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, models.NewValidationError("message is required")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.UserID != viewer.ID {
		return nil, models.NewForbiddenError("You can only update your own requests")
	}
	if !request.IsPending() {
		return nil, models.NewValidationError("only pending requests can be updated")
	}

	if err := s.requests.UpdateMessage(ctx, requestID, message); err != nil {
		return nil, err
	}
	request.Message = message
	return request, nil
}

// Delete removes a request outright. Sysadmin-only; the workflow itself
// never deletes requests.
func (s *Requests) Delete(ctx context.Context, viewer *models.Viewer, requestID string) error {
	if viewer.IsAnonymous() {
		return models.NewUnauthorizedError("You must be logged in to delete a request")
	}
	if !viewer.Sysadmin {
		return models.NewForbiddenError("Sysadmin access required")
	}
	return s.requests.Delete(ctx, requestID)
}

// lockForUpdate takes a row lock on Postgres. SQLite serializes writing
// transactions on its own and rejects the FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func containsUser(list models.StringList, username string) bool {
	for _, name := range list {
		if name == username {
			return true
		}
	}
	return false
}

func removeUser(list models.StringList, username string) models.StringList {
	out := make(models.StringList, 0, len(list))
	for _, name := range list {
		if name != username {
			out = append(out, name)
		}
	}
	return out
}
