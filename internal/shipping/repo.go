package shipping

import (
	"context"
	"errors"

	"github.com/brunomarket/fulfillment-backend/internal/repo"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles shipment and tracking event persistence. Order rows are
// read and written here too because shipment mutations always feed back into
// the order's shipping snapshot.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to shipping operations.
func NewRepository(db *gorm.DB) Repository {
	return Repository{Base: repo.NewBase(db)}
}

// WithTx rebinds the repository onto an open transaction.
func (r Repository) WithTx(tx *gorm.DB) Repository {
	return Repository{Base: r.Base.WithTx(tx)}
}

// FindOrder loads the order a shipment belongs to, locking the row where the
// dialect supports it. Callers always mutate the order's shipping snapshot,
// and the lock keeps those writes from clobbering a concurrent cancellation.
// SQLite serializes writers on its own.
func (r Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	query := r.DB(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "orders"}})
	}

	var order models.Order
	err := query.Where("CAST(id AS TEXT) = ?", orderID.String()).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return &order, nil
}

// FindOrderByCustomer loads an order scoped to the owning customer email.
func (r Repository) FindOrderByCustomer(ctx context.Context, orderID uuid.UUID, email string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Where("CAST(id AS TEXT) = ? AND LOWER(customer_email) = LOWER(?)", orderID.String(), email).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer order")
	}
	return &order, nil
}

// SaveOrder writes back the order's shipping snapshot.
func (r Repository) SaveOrder(ctx context.Context, order *models.Order) error {
	if err := r.DB(ctx).Omit("Items").Save(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
	}
	return nil
}

// FindByOrder returns the shipment for an order, or nil when none exists.
func (r Repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.DB(ctx).Where("CAST(order_id AS TEXT) = ?", orderID.String()).First(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shipment")
	}
	return &shipment, nil
}

// Insert persists a new shipment.
func (r Repository) Insert(ctx context.Context, shipment *models.Shipment) error {
	if err := r.DB(ctx).Create(shipment).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting shipment")
	}
	return nil
}

// Save writes back a shipment.
func (r Repository) Save(ctx context.Context, shipment *models.Shipment) error {
	if err := r.DB(ctx).Save(shipment).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving shipment")
	}
	return nil
}

// InsertEvent appends one tracking event.
func (r Repository) InsertEvent(ctx context.Context, event *models.ShipmentTrackingEvent) error {
	if err := r.DB(ctx).Create(event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting tracking event")
	}
	return nil
}

// ListEventsByOrder returns an order's tracking trail, oldest first.
func (r Repository) ListEventsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ShipmentTrackingEvent, error) {
	var events []models.ShipmentTrackingEvent
	err := r.DB(ctx).
		Where("CAST(order_id AS TEXT) = ?", orderID.String()).
		Order("occurred_at ASC, created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing tracking events")
	}
	return events, nil
}

// StoreName resolves the assigned store's name for event locations.
func (r Repository) StoreName(ctx context.Context, storeID uuid.UUID) (*string, error) {
	var store models.Store
	err := r.DB(ctx).Where("CAST(id AS TEXT) = ?", storeID.String()).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading store")
	}
	return &store.Name, nil
}
