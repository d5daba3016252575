package orders

import (
	"context"
	"errors"
	"time"

	"github.com/brunomarket/fulfillment-backend/internal/repo"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/brunomarket/fulfillment-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides persistence for orders and their items.
type Repository struct {
	repo.Base
}

// NewRepository constructs an order repository.
func NewRepository(db *gorm.DB) Repository {
	return Repository{Base: repo.NewBase(db)}
}

// WithTx rebinds the repository onto an open transaction.
func (r Repository) WithTx(tx *gorm.DB) Repository {
	return Repository{Base: r.Base.WithTx(tx)}
}

// Insert persists an order together with its items.
func (r Repository) Insert(ctx context.Context, order *models.Order) error {
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting order")
	}
	return nil
}

// FindByID loads one order with its items.
func (r Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items").
		Where("CAST(id AS TEXT) = ?", id.String()).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return &order, nil
}

// lockOrderRow adds FOR UPDATE where the dialect supports it. SQLite
// serializes writers anyway, so the lock clause is only applied on Postgres.
func lockOrderRow(query *gorm.DB) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "orders"}})
	}
	return query
}

// FindByIDForUpdate loads one order with a row lock.
func (r Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := lockOrderRow(r.DB(ctx).Preload("Items")).
		Where("CAST(id AS TEXT) = ?", id.String()).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return &order, nil
}

// FindByCustomer loads one order scoped to the owning customer email. The
// email check is case-insensitive.
func (r Repository) FindByCustomer(ctx context.Context, id uuid.UUID, email string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items").
		Where("CAST(id AS TEXT) = ? AND LOWER(customer_email) = LOWER(?)", id.String(), email).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer order")
	}
	return &order, nil
}

// FindByCustomerForUpdate is FindByCustomer with a row lock, for mutations
// that race shipping webhook updates.
func (r Repository) FindByCustomerForUpdate(ctx context.Context, id uuid.UUID, email string) (*models.Order, error) {
	var order models.Order
	err := lockOrderRow(r.DB(ctx).Preload("Items")).
		Where("CAST(id AS TEXT) = ? AND LOWER(customer_email) = LOWER(?)", id.String(), email).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer order")
	}
	return &order, nil
}

// Save writes back every column of an already-loaded order.
func (r Repository) Save(ctx context.Context, order *models.Order) error {
	err := r.DB(ctx).Omit("Items").Save(order).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
	}
	return nil
}

// FindShipmentByOrder returns the shipment for an order, or nil when none
// exists yet.
func (r Repository) FindShipmentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.DB(ctx).
		Where("CAST(order_id AS TEXT) = ?", orderID.String()).
		First(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shipment")
	}
	return &shipment, nil
}

// CancelShipment marks the order's shipment cancelled unless the parcel has
// already been delivered, and appends the matching tracking event.
func (r Repository) CancelShipment(ctx context.Context, shipment *models.Shipment, description string) error {
	if !shipment.Status.IsDeliveredOrCompleted() {
		shipment.Status = "cancelled"
		if err := r.DB(ctx).Save(shipment).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling shipment")
		}
	}

	event := models.ShipmentTrackingEvent{
		ID:          uuid.New(),
		ShipmentID:  shipment.ID,
		OrderID:     shipment.OrderID,
		Status:      "cancelled",
		Description: &description,
		OccurredAt:  time.Now().UTC(),
	}
	if err := r.DB(ctx).Create(&event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording cancellation event")
	}
	return nil
}

// ProductExists reports whether a product row exists for the given id.
func (r Repository) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Product{}).
		Where("CAST(id AS TEXT) = ?", id.String()).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking product existence")
	}
	return count > 0, nil
}

// VariantExists reports whether a product variant row exists for the given id.
func (r Repository) VariantExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ProductVariant{}).
		Where("CAST(id AS TEXT) = ?", id.String()).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking variant existence")
	}
	return count > 0, nil
}

// ListAll returns one page of the admin order listing, newest first,
// annotated with the assigned store. The cursor encodes the last row of the
// previous page.
func (r Repository) ListAll(ctx context.Context, p pagination.Params) (*AdminOrderPage, error) {
	pageSize := pagination.NormalizeLimit(p.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(p.Limit)

	cursor, err := pagination.ParseCursor(p.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	qb := r.DB(ctx).
		Table("orders o").
		Select(`o.id, o.order_number, o.customer_name, o.customer_email,
		        o.shipping_region, o.assigned_store_id, o.status,
		        o.payment_status, o.shipping_status, o.total, o.created_at,
		        s.name AS store_name, s.address AS store_address`).
		Joins("LEFT JOIN stores s ON CAST(s.id AS TEXT) = CAST(o.assigned_store_id AS TEXT)")

	if cursor != nil {
		qb = qb.Where(
			"(o.created_at < ?) OR (o.created_at = ? AND CAST(o.id AS TEXT) < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID.String(),
		)
	}

	var rows []AdminOrderRow
	err = qb.Order("o.created_at DESC").Order("o.id DESC").Limit(limitWithBuffer).Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &AdminOrderPage{Orders: rows, NextCursor: nextCursor}, nil
}

// ListByCustomer returns a customer's order history, newest first. Live
// shipment state overlays the snapshot carried on the order row.
func (r Repository) ListByCustomer(ctx context.Context, email string) ([]CustomerOrderSummary, error) {
	var rows []CustomerOrderSummary
	err := r.DB(ctx).Raw(
		`SELECT o.id, o.order_number, o.created_at, o.status,
		        o.subtotal, o.discount_total, o.total,
		        COALESCE(sh.status, o.shipping_status) AS shipping_status,
		        COALESCE(sh.tracking_code, o.shipping_tracking_code) AS shipping_tracking_code,
		        COALESCE(sh.label_url, o.shipping_label_url) AS shipping_label_url,
		        s.name AS store_name, s.address AS store_address,
		        (SELECT COUNT(*) FROM order_items oi WHERE CAST(oi.order_id AS TEXT) = CAST(o.id AS TEXT)) AS item_count
		 FROM orders o
		 LEFT JOIN shipments sh ON CAST(sh.order_id AS TEXT) = CAST(o.id AS TEXT)
		 LEFT JOIN stores s ON CAST(s.id AS TEXT) = CAST(o.assigned_store_id AS TEXT)
		 WHERE LOWER(o.customer_email) = LOWER(?)
		 ORDER BY o.created_at DESC, o.id DESC`,
		email,
	).Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing customer orders")
	}
	return rows, nil
}

// orderPoint is the minimal projection used for dashboard time series.
type orderPoint struct {
	CreatedAt time.Time
	Total     decimal.Decimal
}

// OrdersSince returns creation timestamps and totals for orders placed at or
// after the cutoff. Bucketing happens in Go so the query stays portable.
func (r Repository) OrdersSince(ctx context.Context, cutoff time.Time) ([]orderPoint, error) {
	var points []orderPoint
	err := r.DB(ctx).Raw(
		`SELECT created_at, total FROM orders WHERE created_at >= ?`,
		cutoff,
	).Scan(&points).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order time series")
	}
	return points, nil
}

// StoreOrderCount is one dashboard row of orders grouped by assigned store.
type StoreOrderCount struct {
	StoreID    *uuid.UUID `json:"store_id"`
	StoreName  string     `json:"store_name"`
	OrderCount int        `json:"order_count"`
}

// CountByStore groups all orders by their assigned store.
func (r Repository) CountByStore(ctx context.Context) ([]StoreOrderCount, error) {
	var rows []StoreOrderCount
	err := r.DB(ctx).Raw(
		`SELECT o.assigned_store_id AS store_id,
		        COALESCE(s.name, 'Unassigned') AS store_name,
		        COUNT(*) AS order_count
		 FROM orders o
		 LEFT JOIN stores s ON CAST(s.id AS TEXT) = CAST(o.assigned_store_id AS TEXT)
		 GROUP BY o.assigned_store_id, s.name
		 ORDER BY order_count DESC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting orders per store")
	}
	return rows, nil
}

// LowStockItem is one dashboard row of products running low at a store.
type LowStockItem struct {
	StoreID      uuid.UUID `json:"store_id"`
	StoreName    *string   `json:"store_name"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductLabel string    `json:"product_label"`
	TotalStock   int       `json:"total_stock"`
}

// LowStockFromInventory aggregates variant-level store_inventory rows to
// product totals per store and keeps those under the threshold.
func (r Repository) LowStockFromInventory(ctx context.Context, threshold, limit int) ([]LowStockItem, error) {
	var rows []LowStockItem
	err := r.DB(ctx).Raw(
		`SELECT si.store_id, s.name AS store_name, pv.product_id,
		        COALESCE(p.sku, CAST(pv.product_id AS TEXT)) AS product_label,
		        SUM(si.stock_quantity) AS total_stock
		 FROM store_inventory si
		 JOIN product_variants pv ON CAST(pv.id AS TEXT) = CAST(si.variant_id AS TEXT)
		 LEFT JOIN products p ON CAST(p.id AS TEXT) = CAST(pv.product_id AS TEXT)
		 LEFT JOIN stores s ON CAST(s.id AS TEXT) = CAST(si.store_id AS TEXT)
		 GROUP BY si.store_id, s.name, pv.product_id, p.sku
		 HAVING SUM(si.stock_quantity) < ?
		 ORDER BY total_stock ASC
		 LIMIT ?`,
		threshold, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading low stock from store_inventory")
	}
	return rows, nil
}

// LowStockFromStoreStock aggregates store_stock rows to product totals per
// store and keeps those under the threshold.
func (r Repository) LowStockFromStoreStock(ctx context.Context, threshold, limit int) ([]LowStockItem, error) {
	var rows []LowStockItem
	err := r.DB(ctx).Raw(
		`SELECT ss.store_id, s.name AS store_name, ss.product_id,
		        COALESCE(p.sku, CAST(ss.product_id AS TEXT)) AS product_label,
		        SUM(ss.quantity) AS total_stock
		 FROM store_stock ss
		 LEFT JOIN products p ON CAST(p.id AS TEXT) = CAST(ss.product_id AS TEXT)
		 LEFT JOIN stores s ON CAST(s.id AS TEXT) = CAST(ss.store_id AS TEXT)
		 GROUP BY ss.store_id, s.name, ss.product_id, p.sku
		 HAVING SUM(ss.quantity) < ?
		 ORDER BY total_stock ASC
		 LIMIT ?`,
		threshold, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading low stock from store_stock")
	}
	return rows, nil
}
