package stores

import (
	"context"
	"errors"

	"github.com/brunomarket/fulfillment-backend/internal/repo"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Repository handles store persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to store operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// List returns stores ordered by fulfillment preference: lowest priority
// level first, then id for a stable tiebreak.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.Store, error) {
	query := r.DB(ctx).Model(&models.Store{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var result []models.Store
	if err := query.Order("priority_level ASC, id ASC").Find(&result).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing stores")
	}
	return result, nil
}

// FindByID loads a store by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := r.DB(ctx).Where("id = ?", id).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	return &store, nil
}

// FindFirstAny returns the best-ranked store regardless of active state, or
// nil when no stores exist at all.
func (r *Repository) FindFirstAny(ctx context.Context) (*models.Store, error) {
	var store models.Store
	err := r.DB(ctx).Order("priority_level ASC, id ASC").First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading fallback store")
	}
	return &store, nil
}

// Activate flips a store back to active and returns the updated row.
func (r *Repository) Activate(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if err := r.DB(ctx).Model(&models.Store{}).Where("id = ?", id).Update("is_active", true).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activating store")
	}
	return r.FindByID(ctx, id)
}

// CreateDefault bootstraps the catch-all store used when the catalog is
// completely empty.
func (r *Repository) CreateDefault(ctx context.Context) (*models.Store, error) {
	regionDistrict := "global"
	address := "Auto-created fallback"
	store := models.Store{
		ID:             uuid.New(),
		Name:           "Default Store",
		RegionDistrict: &regionDistrict,
		Address:        &address,
		PriorityLevel:  1,
		IsActive:       true,
		RegionTags:     pq.StringArray{"global"},
	}
	if err := r.DB(ctx).Create(&store).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating default store")
	}
	return &store, nil
}
