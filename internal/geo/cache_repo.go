package geo

import (
	"context"
	"errors"

	"github.com/brunomarket/fulfillment-backend/internal/repo"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheRepository persists resolved coordinates keyed by normalized query.
type CacheRepository interface {
	Get(ctx context.Context, queryKey string) (*models.GeocodeCacheEntry, error)
	Upsert(ctx context.Context, entry models.GeocodeCacheEntry) error
}

type cacheRepository struct {
	repo.Base
}

// NewCacheRepository builds the geocode cache repository.
func NewCacheRepository(db *gorm.DB) CacheRepository {
	return &cacheRepository{Base: repo.NewBase(db)}
}

// Get returns the cached entry or nil when the key was never resolved.
func (r *cacheRepository) Get(ctx context.Context, queryKey string) (*models.GeocodeCacheEntry, error) {
	var entry models.GeocodeCacheEntry
	err := r.DB(ctx).Where("query_key = ?", queryKey).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading geocode cache entry")
	}
	return &entry, nil
}

// Upsert stores the entry last-write-wins on the normalized key.
func (r *cacheRepository) Upsert(ctx context.Context, entry models.GeocodeCacheEntry) error {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "query_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"query_raw", "latitude", "longitude", "provider", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upserting geocode cache entry")
	}
	return nil
}
