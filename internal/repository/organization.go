package repository

import (
	"context"
	"errors"

	"gatehouse/internal/models"

	"gorm.io/gorm"
)

// OrgRepository defines persistence operations for organizations and memberships.
type OrgRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	Create(ctx context.Context, org *models.Organization) error
	AddMember(ctx context.Context, membership *models.OrgMembership) error
	IsOrgAdmin(ctx context.Context, userID, orgID uint) (bool, error)
	AdminsOf(ctx context.Context, orgID uint) ([]models.User, error)
	OrgIDsAdministeredBy(ctx context.Context, userID uint) ([]uint, error)
}

type orgRepository struct {
	db *gorm.DB
}

// NewOrgRepository returns a new OrgRepository implementation.
func NewOrgRepository(db *gorm.DB) OrgRepository {
	return &orgRepository{db: db}
}

func (r *orgRepository) GetByID(ctx context.Context, id uint) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Organization", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &org, nil
}

func (r *orgRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Organization", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &org, nil
}

func (r *orgRepository) Create(ctx context.Context, org *models.Organization) error {
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *orgRepository) AddMember(ctx context.Context, membership *models.OrgMembership) error {
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *orgRepository) IsOrgAdmin(ctx context.Context, userID, orgID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrgMembership{}).
		Where("user_id = ? AND org_id = ? AND role = ?", userID, orgID, models.OrgRoleAdmin).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// AdminsOf returns the users holding the admin role in the organization.
func (r *orgRepository) AdminsOf(ctx context.Context, orgID uint) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN org_memberships ON org_memberships.user_id = users.id").
		Where("org_memberships.org_id = ? AND org_memberships.role = ?", orgID, models.OrgRoleAdmin).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *orgRepository) OrgIDsAdministeredBy(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.OrgMembership{}).
		Where("user_id = ? AND role = ?", userID, models.OrgRoleAdmin).
		Pluck("org_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
