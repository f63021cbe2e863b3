package repository

import (
	"context"
	"errors"

	"gatehouse/internal/models"

	"gorm.io/gorm"
)

// RequestRepository defines persistence operations for access requests.
// Submit and decide flows run their own transactions in the service layer;
// this repository covers the read paths and standalone mutations.
type RequestRepository interface {
	GetByID(ctx context.Context, id string) (*models.AccessRequest, error)
	ListByUser(ctx context.Context, userID uint) ([]models.AccessRequest, error)
	ListByOrgs(ctx context.Context, orgIDs []uint) ([]models.AccessRequest, error)
	ListAll(ctx context.Context) ([]models.AccessRequest, error)
	ListByPackage(ctx context.Context, packageID uint) ([]models.AccessRequest, error)
	PendingExists(ctx context.Context, resourceID, userID uint) (bool, error)
	UpdateMessage(ctx context.Context, id, message string) error
	Delete(ctx context.Context, id string) error
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new RequestRepository implementation.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*models.AccessRequest, error) {
	var req models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("DecidedByUser").
		Where("id = ?", id).
		First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Access request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *requestRepository) ListByUser(ctx context.Context, userID uint) ([]models.AccessRequest, error) {
	var requests []models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("DecidedByUser").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) ListByOrgs(ctx context.Context, orgIDs []uint) ([]models.AccessRequest, error) {
	if len(orgIDs) == 0 {
		return []models.AccessRequest{}, nil
	}
	var requests []models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("DecidedByUser").
		Where("org_id IN ?", orgIDs).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) ListAll(ctx context.Context) ([]models.AccessRequest, error) {
	var requests []models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("DecidedByUser").
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) ListByPackage(ctx context.Context, packageID uint) ([]models.AccessRequest, error) {
	var requests []models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("package_id = ?", packageID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) PendingExists(ctx context.Context, resourceID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("resource_id = ? AND user_id = ? AND status = ?",
			resourceID, userID, models.RequestStatusPending).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// UpdateMessage replaces the free-text message on a request. Only the
// service layer calls this, after checking ownership and pending status.
func (r *requestRepository) UpdateMessage(ctx context.Context, id, message string) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("id = ?", id).
		Update("message", message)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Access request", id)
	}
	return nil
}

// Delete removes a request outright. Not part of the normal lifecycle;
// reserved for sysadmin cleanup.
func (r *requestRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AccessRequest{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Access request", id)
	}
	return nil
}
