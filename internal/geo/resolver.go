package geo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/brunomarket/fulfillment-backend/pkg/metrics"
	"github.com/brunomarket/fulfillment-backend/pkg/redis"
)

// Resolver turns free-form location text into coordinates. Resolution is
// best-effort and layered: literal pairs, the built-in gazetteer, the redis
// hot cache, the geocode_cache table, then the external geocoder. Failures at
// any layer fall through; a total miss reports ok=false and routing degrades
// to region matching.
type Resolver struct {
	cache   CacheRepository
	hot     *redis.Client
	remote  Geocoder
	metrics *metrics.RoutingMetrics
	logg    *logger.Logger
	hotTTL  time.Duration
}

// NewResolver wires the resolver. The hot cache and remote geocoder are
// optional; the DB cache and logger are not.
func NewResolver(cache CacheRepository, remote Geocoder, hot *redis.Client, m *metrics.RoutingMetrics, logg *logger.Logger, hotTTL time.Duration) (*Resolver, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Resolver{
		cache:   cache,
		hot:     hot,
		remote:  remote,
		metrics: m,
		logg:    logg,
		hotTTL:  hotTTL,
	}, nil
}

// Resolve looks up coordinates for the given text.
func (r *Resolver) Resolve(ctx context.Context, value string) (Coordinates, bool) {
	if coords, ok := ParseCoordinates(value); ok {
		r.metrics.IncGeocodeLookup(metrics.GeocodeSourceLiteral)
		return coords, true
	}

	normalized := NormalizeRegion(value)
	if normalized == "" {
		return Coordinates{}, false
	}

	if coords, ok := LookupGazetteer(normalized); ok {
		r.metrics.IncGeocodeLookup(metrics.GeocodeSourceGazetteer)
		return coords, true
	}

	if lat, lng, ok := r.hot.GetCoordinates(ctx, normalized); ok {
		r.metrics.IncGeocodeLookup(metrics.GeocodeSourceHotCache)
		return Coordinates{Lat: lat, Lng: lng}, true
	}

	entry, err := r.cache.Get(ctx, normalized)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "query_key", normalized), "geocode cache read failed")
	}
	if entry != nil {
		coords := Coordinates{Lat: entry.Latitude, Lng: entry.Longitude}
		r.hot.SetCoordinates(ctx, normalized, coords.Lat, coords.Lng, r.hotTTL)
		r.metrics.IncGeocodeLookup(metrics.GeocodeSourceDBCache)
		return coords, true
	}

	if r.remote == nil {
		r.metrics.IncGeocodeLookup(metrics.GeocodeSourceMiss)
		return Coordinates{}, false
	}

	coords, ok, err := r.remote.Geocode(ctx, value)
	if err != nil || !ok {
		if err != nil {
			r.logg.Warn(r.logg.WithField(ctx, "query_key", normalized), "remote geocode failed")
		}
		r.metrics.IncGeocodeLookup(metrics.GeocodeSourceMiss)
		return Coordinates{}, false
	}

	// Cache writes must never block resolution.
	if err := r.cache.Upsert(ctx, models.GeocodeCacheEntry{
		QueryKey:  normalized,
		QueryRaw:  strings.TrimSpace(value),
		Latitude:  coords.Lat,
		Longitude: coords.Lng,
		Provider:  nominatimProviderLabel,
	}); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "query_key", normalized), "geocode cache write failed")
	}
	r.hot.SetCoordinates(ctx, normalized, coords.Lat, coords.Lng, r.hotTTL)

	r.metrics.IncGeocodeLookup(metrics.GeocodeSourceRemote)
	return coords, true
}

// ResolveStore tries the store's location fields from most to least specific.
func (r *Resolver) ResolveStore(ctx context.Context, store models.Store) (Coordinates, bool) {
	candidates := []*string{
		store.RegionDistrict,
		store.City,
		store.District,
		store.RegionCode,
		store.Address,
	}
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if coords, ok := r.Resolve(ctx, *candidate); ok {
			return coords, true
		}
	}
	return Coordinates{}, false
}
