package inventory

import (
	"context"
	"fmt"

	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Reserve atomically decrements stock for every line at the given store.
// Each decrement is conditional on sufficient quantity; a decrement that
// matches no row aborts with an insufficient-stock error naming the line.
// Concurrent reservations serialize on the database row lock taken by the
// UPDATE, so the quantity guard holds under contention too and the loser
// simply matches zero rows. When no inventory table exists at all,
// reservation is a silent no-op.
func (s *Source) Reserve(ctx context.Context, tx *gorm.DB, caps Capabilities, storeID uuid.UUID, lines []Line) error {
	if !caps.Any() {
		return nil
	}
	for _, line := range lines {
		if err := s.reserveLine(ctx, tx, caps, storeID, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) reserveLine(ctx context.Context, tx *gorm.DB, caps Capabilities, storeID uuid.UUID, line Line) error {
	if line.Quantity <= 0 {
		return nil
	}

	// Variant-keyed store_inventory is authoritative for variant lines:
	// a shortfall there fails the reservation without consulting store_stock.
	if caps.HasStoreInventory && line.VariantID != nil {
		result := tx.WithContext(ctx).Exec(
			`UPDATE store_inventory
			 SET stock_quantity = stock_quantity - ?, updated_at = CURRENT_TIMESTAMP
			 WHERE CAST(store_id AS TEXT) = ?
			   AND CAST(variant_id AS TEXT) = ?
			   AND stock_quantity >= ?`,
			line.Quantity, storeID.String(), line.VariantID.String(), line.Quantity,
		)
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "reserving variant inventory")
		}
		if result.RowsAffected == 0 {
			s.metrics.IncStockConflict()
			return insufficientStockError(line)
		}
		return nil
	}

	if caps.HasStoreStock && line.VariantID != nil {
		result := tx.WithContext(ctx).Exec(
			`UPDATE store_stock
			 SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
			 WHERE CAST(store_id AS TEXT) = ?
			   AND CAST(variant_id AS TEXT) = ?
			   AND quantity >= ?`,
			line.Quantity, storeID.String(), line.VariantID.String(), line.Quantity,
		)
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "reserving variant stock")
		}
		if result.RowsAffected > 0 {
			return nil
		}
	}

	if caps.HasStoreStock && line.ProductID != nil {
		result := tx.WithContext(ctx).Exec(
			`UPDATE store_stock
			 SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
			 WHERE CAST(store_id AS TEXT) = ?
			   AND CAST(product_id AS TEXT) = ?
			   AND (variant_id IS NULL OR CAST(variant_id AS TEXT) = '')
			   AND quantity >= ?`,
			line.Quantity, storeID.String(), line.ProductID.String(), line.Quantity,
		)
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "reserving product stock")
		}
		if result.RowsAffected > 0 {
			return nil
		}
	}

	s.metrics.IncStockConflict()
	return insufficientStockError(line)
}

// Release returns reserved quantities to stock with uncapped increments. The
// first matching row absorbs the full quantity, mirroring the reservation
// order. Lines are released independently; failures are aggregated so one bad
// line never strands the rest.
func (s *Source) Release(ctx context.Context, tx *gorm.DB, caps Capabilities, storeID uuid.UUID, lines []Line) error {
	if !caps.Any() {
		return nil
	}

	var errs error
	for _, line := range lines {
		errs = multierr.Append(errs, s.releaseLine(ctx, tx, caps, storeID, line))
	}
	return errs
}

func (s *Source) releaseLine(ctx context.Context, tx *gorm.DB, caps Capabilities, storeID uuid.UUID, line Line) error {
	if line.Quantity <= 0 {
		return nil
	}

	if caps.HasStoreInventory && line.VariantID != nil {
		result := tx.WithContext(ctx).Exec(
			`UPDATE store_inventory
			 SET stock_quantity = stock_quantity + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE CAST(store_id AS TEXT) = ?
			   AND CAST(variant_id AS TEXT) = ?`,
			line.Quantity, storeID.String(), line.VariantID.String(),
		)
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "releasing variant inventory")
		}
		if result.RowsAffected > 0 {
			return nil
		}
	}

	if caps.HasStoreStock && line.VariantID != nil {
		result := tx.WithContext(ctx).Exec(
			`UPDATE store_stock
			 SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE CAST(store_id AS TEXT) = ?
			   AND CAST(variant_id AS TEXT) = ?`,
			line.Quantity, storeID.String(), line.VariantID.String(),
		)
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "releasing variant stock")
		}
		if result.RowsAffected > 0 {
			return nil
		}
	}

	if caps.HasStoreStock && line.ProductID != nil {
		result := tx.WithContext(ctx).Exec(
			`UPDATE store_stock
			 SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE CAST(store_id AS TEXT) = ?
			   AND CAST(product_id AS TEXT) = ?
			   AND (variant_id IS NULL OR CAST(variant_id AS TEXT) = '')`,
			line.Quantity, storeID.String(), line.ProductID.String(),
		)
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "releasing product stock")
		}
	}
	return nil
}

func insufficientStockError(line Line) error {
	label := line.Name
	if line.SKU != nil && *line.SKU != "" {
		label = *line.SKU
	}
	details := map[string]any{
		"quantity": line.Quantity,
	}
	if line.ProductID != nil {
		details["product_id"] = line.ProductID.String()
	}
	if line.VariantID != nil {
		details["variant_id"] = line.VariantID.String()
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for item %s", label)).WithDetails(details)
}
