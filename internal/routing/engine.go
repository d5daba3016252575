package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/brunomarket/fulfillment-backend/internal/inventory"
	"github.com/brunomarket/fulfillment-backend/internal/stores"
	"github.com/brunomarket/fulfillment-backend/pkg/config"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/brunomarket/fulfillment-backend/pkg/metrics"
	"gorm.io/gorm"
)

// Score summarizes how well one store covers the requested lines.
type Score struct {
	CanFulfill     bool
	FulfilledLines int
	AvailableUnits int
}

// Engine assigns a fulfillment store to an order. Ranking is delegated to
// the configured strategy; the engine applies the stock filter, the
// best-partial fallback, and the guarantees that an order always gets a
// store.
type Engine struct {
	stores   stores.Service
	source   *inventory.Source
	strategy Strategy
	metrics  *metrics.RoutingMetrics
	logg     *logger.Logger
}

// NewEngine wires the routing engine with the strategy named in config.
func NewEngine(cfg config.RoutingConfig, storeSvc stores.Service, source *inventory.Source, strategies []Strategy, m *metrics.RoutingMetrics, logg *logger.Logger) (*Engine, error) {
	if storeSvc == nil {
		return nil, fmt.Errorf("store service required")
	}
	if source == nil {
		return nil, fmt.Errorf("inventory source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	var selected Strategy
	for _, strategy := range strategies {
		if strategy != nil && strategy.Name() == cfg.Strategy {
			selected = strategy
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("unknown routing strategy %q", cfg.Strategy)
	}

	return &Engine{
		stores:   storeSvc,
		source:   source,
		strategy: selected,
		metrics:  m,
		logg:     logg,
	}, nil
}

// Strategy returns the active strategy name.
func (e *Engine) Strategy() string {
	return e.strategy.Name()
}

// AssignStore picks the store that will fulfill the given lines. The nearest
// ranked store that can cover every line wins; otherwise the best partial
// cover (most fulfillable lines, then most units, then nearest). An empty or
// unprobeable catalog falls back to re-activating or bootstrapping a store so
// the order is never rejected for lack of routing.
func (e *Engine) AssignStore(ctx context.Context, db *gorm.DB, shippingRegion string, lines []inventory.Line) (*models.Store, error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveSelection(e.strategy.Name(), time.Since(start))
	}()

	caps, err := e.source.Detect(ctx, db)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRoutingUnavailable, err, "probing inventory capabilities")
	}

	views, err := e.stores.List(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRoutingUnavailable, err, "listing active stores")
	}

	if len(views) > 0 {
		ranked := e.strategy.Rank(ctx, views, shippingRegion)

		var bestPartial *Candidate
		var bestScore Score
		for i := range ranked {
			candidate := ranked[i]
			score, err := e.scoreCandidate(ctx, db, caps, candidate, lines)
			if err != nil {
				return nil, err
			}

			// The best-ranked store with full coverage wins outright.
			if score.CanFulfill || len(lines) == 0 {
				e.metrics.IncOutcome(e.strategy.Name(), metrics.OutcomeFull)
				return &ranked[i].Store, nil
			}

			if bestPartial == nil || partialBeats(candidate, score, *bestPartial, bestScore) {
				bestPartial = &ranked[i]
				bestScore = score
			}
		}

		if bestPartial != nil {
			ctx := e.logg.WithStoreID(ctx, bestPartial.ID.String())
			e.logg.Warn(ctx, "no store fully covers order, assigning best partial match")
			e.metrics.IncOutcome(e.strategy.Name(), metrics.OutcomePartial)
			return &bestPartial.Store, nil
		}
	}

	fallback, err := e.stores.EnsureFallbackStore(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRoutingUnavailable, err, "ensuring fallback store")
	}
	e.metrics.IncOutcome(e.strategy.Name(), metrics.OutcomeFallback)
	return fallback, nil
}

func (e *Engine) scoreCandidate(ctx context.Context, db *gorm.DB, caps inventory.Capabilities, candidate Candidate, lines []inventory.Line) (Score, error) {
	if len(lines) == 0 {
		return Score{CanFulfill: true}, nil
	}

	score := Score{CanFulfill: true}
	for _, line := range lines {
		available, err := e.source.Available(ctx, db, caps, candidate.ID, line)
		if err != nil {
			return Score{}, pkgerrors.Wrap(pkgerrors.CodeRoutingUnavailable, err, "probing store availability")
		}
		score.AvailableUnits += min(available, line.Quantity)
		if available >= line.Quantity {
			score.FulfilledLines++
		} else {
			score.CanFulfill = false
		}
	}
	return score, nil
}

// partialBeats implements the best-partial ordering: more fulfillable lines,
// then more reservable units, then shorter distance.
func partialBeats(candidate Candidate, score Score, best Candidate, bestScore Score) bool {
	if score.FulfilledLines != bestScore.FulfilledLines {
		return score.FulfilledLines > bestScore.FulfilledLines
	}
	if score.AvailableUnits != bestScore.AvailableUnits {
		return score.AvailableUnits > bestScore.AvailableUnits
	}
	return finiteOrMax(candidate.DistanceKm) < finiteOrMax(best.DistanceKm)
}
