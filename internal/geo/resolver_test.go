package geo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupGeoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS geocode_cache (
  query_key TEXT PRIMARY KEY,
  query_raw TEXT NOT NULL,
  latitude REAL NOT NULL,
  longitude REAL NOT NULL,
  provider TEXT NOT NULL DEFAULT 'nominatim',
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newTestResolver(t *testing.T, db *gorm.DB, remote Geocoder) *Resolver {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	resolver, err := NewResolver(NewCacheRepository(db), remote, nil, nil, logg, 0)
	require.NoError(t, err)
	return resolver
}

func TestResolverLiteralPair(t *testing.T) {
	resolver := newTestResolver(t, setupGeoTestDB(t), nil)

	coords, ok := resolver.Resolve(context.Background(), "38.7223,-9.1393")
	require.True(t, ok)
	assert.InDelta(t, 38.7223, coords.Lat, 0.0001)
}

func TestResolverGazetteerBeforeRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("remote geocoder must not be called for gazetteer hits")
	}))
	defer server.Close()

	remote := NewNominatimClient(WithEndpoint(server.URL))
	resolver := newTestResolver(t, setupGeoTestDB(t), remote)

	coords, ok := resolver.Resolve(context.Background(), "Évora")
	require.True(t, ok)
	assert.InDelta(t, 38.571, coords.Lat, 0.0001)
}

func TestResolverDBCacheHit(t *testing.T) {
	db := setupGeoTestDB(t)
	require.NoError(t, db.Exec(
		`INSERT INTO geocode_cache (query_key, query_raw, latitude, longitude, provider) VALUES (?, ?, ?, ?, 'nominatim')`,
		"rua das flores 10", "Rua das Flores 10", 41.1421, -8.6147,
	).Error)

	resolver := newTestResolver(t, db, nil)

	coords, ok := resolver.Resolve(context.Background(), "Rua das Flores 10")
	require.True(t, ok)
	assert.InDelta(t, 41.1421, coords.Lat, 0.0001)
	assert.InDelta(t, -8.6147, coords.Lng, 0.0001)
}

func TestResolverRemoteFetchPopulatesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"40.1234","lon":"-8.5678"}]`))
	}))
	defer server.Close()

	db := setupGeoTestDB(t)
	remote := NewNominatimClient(WithEndpoint(server.URL))
	resolver := newTestResolver(t, db, remote)

	coords, ok := resolver.Resolve(context.Background(), "Quinta do Exemplo")
	require.True(t, ok)
	assert.InDelta(t, 40.1234, coords.Lat, 0.0001)
	assert.InDelta(t, -8.5678, coords.Lng, 0.0001)

	var entry models.GeocodeCacheEntry
	require.NoError(t, db.Where("query_key = ?", "quinta do exemplo").First(&entry).Error)
	assert.Equal(t, "Quinta do Exemplo", entry.QueryRaw)
	assert.InDelta(t, 40.1234, entry.Latitude, 0.0001)

	// Second resolution must come from the cache, not the remote.
	server.Close()
	coords, ok = resolver.Resolve(context.Background(), "Quinta do Exemplo")
	require.True(t, ok)
	assert.InDelta(t, 40.1234, coords.Lat, 0.0001)
}

func TestResolverRemoteEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, setupGeoTestDB(t), NewNominatimClient(WithEndpoint(server.URL)))

	_, ok := resolver.Resolve(context.Background(), "Nowhere In Particular")
	assert.False(t, ok)
}

func TestResolverRemoteOutOfRangeDiscarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"95.0","lon":"200.0"}]`))
	}))
	defer server.Close()

	db := setupGeoTestDB(t)
	resolver := newTestResolver(t, db, NewNominatimClient(WithEndpoint(server.URL)))

	_, ok := resolver.Resolve(context.Background(), "nowhereville")
	assert.False(t, ok)

	// Nothing gets cached either.
	var count int64
	require.NoError(t, db.Table("geocode_cache").Count(&count).Error)
	assert.Zero(t, count)
}

func TestResolverRemoteFailureDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resolver := newTestResolver(t, setupGeoTestDB(t), NewNominatimClient(WithEndpoint(server.URL)))

	_, ok := resolver.Resolve(context.Background(), "Somewhere Else")
	assert.False(t, ok)
}

func TestResolverStoreFieldFallback(t *testing.T) {
	resolver := newTestResolver(t, setupGeoTestDB(t), nil)

	city := "Braga"
	store := models.Store{City: &city}

	coords, ok := resolver.ResolveStore(context.Background(), store)
	require.True(t, ok)
	assert.InDelta(t, 41.5454, coords.Lat, 0.0001)

	regionDistrict := "porto"
	store.RegionDistrict = &regionDistrict
	coords, ok = resolver.ResolveStore(context.Background(), store)
	require.True(t, ok)
	assert.InDelta(t, 41.1579, coords.Lat, 0.0001)

	empty := models.Store{}
	_, ok = resolver.ResolveStore(context.Background(), empty)
	assert.False(t, ok)
}
