package inventory

import (
	"context"
	"fmt"

	"github.com/brunomarket/fulfillment-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Line is one order line as inventory sees it.
type Line struct {
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	SKU       *string
	Name      string
	Quantity  int
}

// Capabilities records which physical inventory tables exist in the target
// database. Deployments migrated at different times carry either shape, both,
// or neither.
type Capabilities struct {
	HasStoreInventory bool
	HasStoreStock     bool
}

// Any reports whether at least one inventory table is present.
func (c Capabilities) Any() bool {
	return c.HasStoreInventory || c.HasStoreStock
}

// Source adapts the two inventory schemas behind one availability and
// reservation surface. All methods run against the handle they are given so
// reservation participates in the caller's transaction.
type Source struct {
	metrics *metrics.RoutingMetrics
}

// NewSource builds the inventory source.
func NewSource(m *metrics.RoutingMetrics) *Source {
	return &Source{metrics: m}
}

// Detect probes which inventory tables exist.
func (s *Source) Detect(ctx context.Context, db *gorm.DB) (Capabilities, error) {
	if db.Dialector.Name() == "sqlite" {
		return s.detectSQLite(ctx, db)
	}

	var row struct {
		HasStoreInventory bool
		HasStoreStock     bool
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			to_regclass('public.store_inventory') IS NOT NULL AS has_store_inventory,
			to_regclass('public.store_stock') IS NOT NULL AS has_store_stock`,
	).Scan(&row).Error
	if err != nil {
		return Capabilities{}, fmt.Errorf("probing inventory tables: %w", err)
	}
	return Capabilities{HasStoreInventory: row.HasStoreInventory, HasStoreStock: row.HasStoreStock}, nil
}

func (s *Source) detectSQLite(ctx context.Context, db *gorm.DB) (Capabilities, error) {
	var names []string
	err := db.WithContext(ctx).Raw(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('store_inventory', 'store_stock')`,
	).Scan(&names).Error
	if err != nil {
		return Capabilities{}, fmt.Errorf("probing inventory tables: %w", err)
	}

	var caps Capabilities
	for _, name := range names {
		switch name {
		case "store_inventory":
			caps.HasStoreInventory = true
		case "store_stock":
			caps.HasStoreStock = true
		}
	}
	return caps, nil
}

// Available returns the sellable quantity for one line at one store.
// Variant-keyed store_inventory wins when present; duplicates there are
// aggregated with MAX to avoid double counting, store_stock rows with SUM.
func (s *Source) Available(ctx context.Context, db *gorm.DB, caps Capabilities, storeID uuid.UUID, line Line) (int, error) {
	if storeID == uuid.Nil {
		return 0, nil
	}

	if caps.HasStoreInventory && line.VariantID != nil {
		var qty int
		err := db.WithContext(ctx).Raw(
			`SELECT COALESCE(MAX(stock_quantity), 0)
			 FROM store_inventory
			 WHERE CAST(store_id AS TEXT) = ? AND CAST(variant_id AS TEXT) = ?`,
			storeID.String(), line.VariantID.String(),
		).Scan(&qty).Error
		if err != nil {
			return 0, fmt.Errorf("reading store_inventory availability: %w", err)
		}
		return max(0, qty), nil
	}

	if caps.HasStoreStock && line.VariantID != nil {
		var qty int
		err := db.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(quantity), 0)
			 FROM store_stock
			 WHERE CAST(store_id AS TEXT) = ? AND CAST(variant_id AS TEXT) = ?`,
			storeID.String(), line.VariantID.String(),
		).Scan(&qty).Error
		if err != nil {
			return 0, fmt.Errorf("reading store_stock availability: %w", err)
		}
		return max(0, qty), nil
	}

	if caps.HasStoreStock && line.ProductID != nil {
		var qty int
		err := db.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM(quantity), 0)
			 FROM store_stock
			 WHERE CAST(store_id AS TEXT) = ? AND CAST(product_id AS TEXT) = ?`,
			storeID.String(), line.ProductID.String(),
		).Scan(&qty).Error
		if err != nil {
			return 0, fmt.Errorf("reading store_stock product availability: %w", err)
		}
		return max(0, qty), nil
	}

	return 0, nil
}
