package stores

import (
	"context"
	"fmt"

	"github.com/brunomarket/fulfillment-backend/internal/geo"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/google/uuid"
)

type storeRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Store, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindFirstAny(ctx context.Context) (*models.Store, error)
	Activate(ctx context.Context, id uuid.UUID) (*models.Store, error)
	CreateDefault(ctx context.Context) (*models.Store, error)
}

// View is a store annotated for routing: the raw row plus its normalized
// district text.
type View struct {
	models.Store
	NormalizedDistrict string
}

// Service exposes the store catalog as routing consumes it.
type Service interface {
	List(ctx context.Context, activeOnly bool) ([]View, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	EnsureFallbackStore(ctx context.Context) (*models.Store, error)
}

type service struct {
	repo storeRepository
}

// NewService builds a store service with the provided repository.
func NewService(repo storeRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo}, nil
}

// List returns stores in fulfillment preference order, each annotated with
// the normalized district used for region matching.
func (s *service) List(ctx context.Context, activeOnly bool) ([]View, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, View{
			Store:              row,
			NormalizedDistrict: normalizedDistrict(row),
		})
	}
	return views, nil
}

// GetByID loads a single store.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return s.repo.FindByID(ctx, id)
}

// EnsureFallbackStore guarantees routing always has a store to assign: it
// reuses the best-ranked existing store, re-activating it when necessary, and
// bootstraps the catch-all default store when the catalog is empty.
func (s *service) EnsureFallbackStore(ctx context.Context) (*models.Store, error) {
	existing, err := s.repo.FindFirstAny(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsActive {
			return existing, nil
		}
		return s.repo.Activate(ctx, existing.ID)
	}
	return s.repo.CreateDefault(ctx)
}

func normalizedDistrict(store models.Store) string {
	if store.RegionDistrict != nil && *store.RegionDistrict != "" {
		return geo.NormalizeRegion(*store.RegionDistrict)
	}
	if store.District != nil {
		return geo.NormalizeRegion(*store.District)
	}
	return ""
}
