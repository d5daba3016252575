package stores

import (
	"context"
	"testing"

	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStoresTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS stores (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  address TEXT,
  region_district TEXT,
  city TEXT,
  district TEXT,
  region_code TEXT,
  priority_level INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  region_tags TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedStore(t *testing.T, db *gorm.DB, name string, priority int, active bool) *models.Store {
	t.Helper()

	store := &models.Store{
		ID:            uuid.New(),
		Name:          name,
		PriorityLevel: priority,
		IsActive:      active,
	}
	require.NoError(t, db.Create(store).Error)
	return store
}

func TestRepositoryListOrdersByPriorityThenID(t *testing.T) {
	db := setupStoresTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedStore(t, db, "Second Priority", 2, true)
	seedStore(t, db, "First Priority", 1, true)
	seedStore(t, db, "Inactive", 1, false)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "First Priority", active[0].Name)
	assert.Equal(t, "Second Priority", active[1].Name)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRepositoryActivate(t *testing.T) {
	db := setupStoresTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	store := seedStore(t, db, "Dormant", 1, false)

	activated, err := repo.Activate(ctx, store.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
}

func TestRepositoryCreateDefault(t *testing.T) {
	db := setupStoresTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	store, err := repo.CreateDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Default Store", store.Name)
	require.NotNil(t, store.RegionDistrict)
	assert.Equal(t, "global", *store.RegionDistrict)
	assert.True(t, store.IsActive)
	assert.Contains(t, []string(store.RegionTags), "global")
}

func TestRepositoryFindFirstAnyEmptyCatalog(t *testing.T) {
	db := setupStoresTestDB(t)
	repo := NewRepository(db)

	store, err := repo.FindFirstAny(context.Background())
	require.NoError(t, err)
	assert.Nil(t, store)
}
