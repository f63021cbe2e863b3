package repository

import (
	"context"
	"errors"
	"strings"

	"gatehouse/internal/cache"
	"gatehouse/internal/models"

	"gorm.io/gorm"
)

// CatalogRepository defines persistence operations for packages and resources.
type CatalogRepository interface {
	GetPackageByID(ctx context.Context, id uint) (*models.Package, error)
	GetPackageBySlug(ctx context.Context, slug string) (*models.Package, error)
	CreatePackage(ctx context.Context, pkg *models.Package) error
	UpdatePackage(ctx context.Context, pkg *models.Package) error

	GetResourceByID(ctx context.Context, id uint) (*models.Resource, error)
	ResourcesOfPackage(ctx context.Context, packageID uint) ([]models.Resource, error)
	CreateResource(ctx context.Context, res *models.Resource) error
	UpdateResource(ctx context.Context, res *models.Resource) error
	SearchResources(ctx context.Context, query string, limit, offset int) ([]models.Resource, int64, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository returns a new CatalogRepository implementation.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetPackageByID(ctx context.Context, id uint) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.WithContext(ctx).Preload("Org").First(&pkg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Package", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &pkg, nil
}

func (r *catalogRepository) GetPackageBySlug(ctx context.Context, slug string) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.WithContext(ctx).Preload("Org").Where("slug = ?", slug).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Package", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &pkg, nil
}

func (r *catalogRepository) CreatePackage(ctx context.Context, pkg *models.Package) error {
	if err := r.db.WithContext(ctx).Create(pkg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *catalogRepository) UpdatePackage(ctx context.Context, pkg *models.Package) error {
	if err := r.db.WithContext(ctx).Save(pkg).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePackage(ctx, pkg.Slug)
	return nil
}

func (r *catalogRepository) GetResourceByID(ctx context.Context, id uint) (*models.Resource, error) {
	var res models.Resource
	key := cache.ResourceKey(id)

	err := cache.Aside(ctx, key, &res, cache.ResourceTTL, func() error {
		if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Resource", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *catalogRepository) ResourcesOfPackage(ctx context.Context, packageID uint) ([]models.Resource, error) {
	var resources []models.Resource
	if err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("created_at ASC").
		Find(&resources).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return resources, nil
}

func (r *catalogRepository) CreateResource(ctx context.Context, res *models.Resource) error {
	if err := r.db.WithContext(ctx).Create(res).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *catalogRepository) UpdateResource(ctx context.Context, res *models.Resource) error {
	if err := r.db.WithContext(ctx).Save(res).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateResource(ctx, res.ID)
	return nil
}

// SearchResources matches resource names and descriptions. The returned
// total is the unfiltered match count; visibility filtering downstream may
// report fewer.
func (r *catalogRepository) SearchResources(ctx context.Context, query string, limit, offset int) ([]models.Resource, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var total int64
	base := r.db.WithContext(ctx).Model(&models.Resource{}).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var resources []models.Resource
	if err := base.
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&resources).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return resources, total, nil
}
