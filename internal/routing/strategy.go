package routing

import (
	"context"
	"math"
	"sort"

	"github.com/brunomarket/fulfillment-backend/internal/geo"
	"github.com/brunomarket/fulfillment-backend/internal/stores"
)

// Strategy names selectable via configuration.
const (
	StrategyDistanceFirst = "distance_first"
	StrategyRegionFirst   = "region_first"
)

// Candidate is a store annotated with its distance to the shipping
// destination. DistanceKm is +Inf when neither side could be resolved and the
// region text does not match.
type Candidate struct {
	stores.View
	DistanceKm float64
}

// Strategy orders the active stores by fulfillment preference for one
// shipping destination. The engine walks the ranking and applies the stock
// filter.
type Strategy interface {
	Name() string
	Rank(ctx context.Context, views []stores.View, shippingRegion string) []Candidate
}

// distanceFirst ranks purely by geographic proximity: distance, then
// priority level, then id.
type distanceFirst struct {
	resolver *geo.Resolver
}

// NewDistanceFirst builds the production ranking strategy.
func NewDistanceFirst(resolver *geo.Resolver) Strategy {
	return &distanceFirst{resolver: resolver}
}

func (d *distanceFirst) Name() string { return StrategyDistanceFirst }

func (d *distanceFirst) Rank(ctx context.Context, views []stores.View, shippingRegion string) []Candidate {
	candidates := annotateDistances(ctx, d.resolver, views, shippingRegion)
	sort.SliceStable(candidates, func(i, j int) bool {
		return lessByDistance(candidates[i], candidates[j])
	})
	return candidates
}

// regionFirst is the historical policy: stores explicitly tagged for the
// shipping region rank ahead of everything else, distance breaks ties.
type regionFirst struct {
	resolver *geo.Resolver
}

// NewRegionFirst builds the region-tag-first ranking strategy.
func NewRegionFirst(resolver *geo.Resolver) Strategy {
	return &regionFirst{resolver: resolver}
}

func (r *regionFirst) Name() string { return StrategyRegionFirst }

func (r *regionFirst) Rank(ctx context.Context, views []stores.View, shippingRegion string) []Candidate {
	candidates := annotateDistances(ctx, r.resolver, views, shippingRegion)
	normalized := geo.NormalizeRegion(shippingRegion)

	matches := func(c Candidate) bool {
		if normalized == "" {
			return false
		}
		if c.NormalizedDistrict == normalized {
			return true
		}
		for _, tag := range c.RegionTags {
			tag = geo.NormalizeRegion(tag)
			if tag == normalized || tag == "global" {
				return true
			}
		}
		return false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		mi, mj := matches(candidates[i]), matches(candidates[j])
		if mi != mj {
			return mi
		}
		return lessByDistance(candidates[i], candidates[j])
	})
	return candidates
}

func annotateDistances(ctx context.Context, resolver *geo.Resolver, views []stores.View, shippingRegion string) []Candidate {
	customerCoords, haveCustomer := resolver.Resolve(ctx, shippingRegion)
	normalized := geo.NormalizeRegion(shippingRegion)

	candidates := make([]Candidate, 0, len(views))
	for _, view := range views {
		distance := math.Inf(1)
		storeCoords, haveStore := resolver.ResolveStore(ctx, view.Store)
		switch {
		case haveCustomer && haveStore:
			distance = geo.HaversineKm(customerCoords, storeCoords)
		case view.NormalizedDistrict != "" && view.NormalizedDistrict == normalized:
			// Unresolvable coordinates but matching region text counts as
			// co-located.
			distance = 0
		}
		candidates = append(candidates, Candidate{View: view, DistanceKm: distance})
	}
	return candidates
}

func lessByDistance(a, b Candidate) bool {
	da, db := finiteOrMax(a.DistanceKm), finiteOrMax(b.DistanceKm)
	if da != db {
		return da < db
	}
	if a.PriorityLevel != b.PriorityLevel {
		return a.PriorityLevel < b.PriorityLevel
	}
	return a.ID.String() < b.ID.String()
}

func finiteOrMax(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return math.MaxFloat64
	}
	return v
}
