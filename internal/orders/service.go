package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/brunomarket/fulfillment-backend/internal/inventory"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/brunomarket/fulfillment-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// txRunner is the slice of db.Client the service needs.
type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// storeAssigner picks a fulfillment store for a set of order lines.
type storeAssigner interface {
	AssignStore(ctx context.Context, db *gorm.DB, shippingRegion string, lines []inventory.Line) (*models.Store, error)
}

// shipmentEnsurer lazily creates the shipment once an order is paid.
type shipmentEnsurer interface {
	EnsureShipment(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
}

// invoiceGenerator issues the invoice when an order completes.
type invoiceGenerator interface {
	EnsureForOrder(ctx context.Context, order *models.Order) (*models.Invoice, error)
}

// Service is the order lifecycle surface.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetForCustomer(ctx context.Context, id uuid.UUID, email string) (*models.Order, error)
	List(ctx context.Context, p pagination.Params) (*AdminOrderPage, error)
	ListByCustomer(ctx context.Context, email string) ([]CustomerOrderSummary, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, email string) (*models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*models.Order, error)
	DashboardSummary(ctx context.Context, lowStockThreshold, lowStockLimit int) (*DashboardSummary, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	router   storeAssigner
	source   *inventory.Source
	shipping shipmentEnsurer
	invoices invoiceGenerator
	logg     *logger.Logger
}

// NewService wires the order service. The shipping and invoice collaborators
// are optional so payment and completion flows degrade to order-only updates
// when they are absent.
func NewService(repo Repository, tx txRunner, router storeAssigner, source *inventory.Source, shipping shipmentEnsurer, invoices invoiceGenerator, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if router == nil {
		return nil, fmt.Errorf("store assigner required")
	}
	if source == nil {
		return nil, fmt.Errorf("inventory source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		router:   router,
		source:   source,
		shipping: shipping,
		invoices: invoices,
		logg:     logg,
	}, nil
}

// Create validates and places an order. Store assignment runs outside the
// transaction; stock reservation and the order insert share one transaction
// so a failed reservation never leaves a half-written order behind.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	input.normalize()
	if missing := input.missingFields(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required order fields").
			WithDetails(map[string]any{"missing_fields": missing})
	}

	lines := input.routableLines()
	region := ""
	if input.ShippingRegion != nil {
		region = *input.ShippingRegion
	}

	store, err := s.router.AssignStore(ctx, s.tx.DB(), region, lines)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range input.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	total := subtotal.Sub(input.DiscountTotal)
	if total.IsNegative() {
		total = decimal.Zero
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		caps, err := s.source.Detect(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probing inventory capabilities")
		}
		if err := s.source.Reserve(ctx, tx, caps, store.ID, lines); err != nil {
			return err
		}

		items, err := s.buildItems(ctx, txRepo, input.Items)
		if err != nil {
			return err
		}

		storeID := store.ID
		order = &models.Order{
			ID:              uuid.New(),
			OrderNumber:     newOrderNumber(),
			CustomerName:    input.CustomerName,
			CustomerEmail:   input.CustomerEmail,
			ShippingAddress: input.ShippingAddress,
			ShippingRegion:  input.ShippingRegion,
			AssignedStoreID: &storeID,
			Status:          enums.OrderStatusAwaitingPayment,
			PaymentStatus:   enums.PaymentStatusPending,
			ShippingStatus:  enums.ShippingStatusNotCreated,
			Subtotal:        subtotal,
			DiscountTotal:   input.DiscountTotal,
			Total:           total,
			StockCommitted:  true,
			Items:           items,
		}
		return txRepo.Insert(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithStoreID(logCtx, store.ID.String())
	s.logg.Info(logCtx, "order created")
	return order, nil
}

// buildItems snapshots the request lines, keeping catalog links only when
// the referenced rows still exist. Existence checks are cached per request.
func (s *service) buildItems(ctx context.Context, txRepo Repository, inputs []CreateOrderItemInput) ([]models.OrderItem, error) {
	productSeen := make(map[uuid.UUID]bool)
	variantSeen := make(map[uuid.UUID]bool)

	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		item := models.OrderItem{
			ID:          uuid.New(),
			ProductName: in.ProductName,
			SKU:         in.SKU,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			LineTotal:   in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
		}

		if in.ProductID != nil {
			exists, ok := productSeen[*in.ProductID]
			if !ok {
				var err error
				exists, err = txRepo.ProductExists(ctx, *in.ProductID)
				if err != nil {
					return nil, err
				}
				productSeen[*in.ProductID] = exists
			}
			if exists {
				item.ProductID = in.ProductID
			}
		}
		if in.VariantID != nil {
			exists, ok := variantSeen[*in.VariantID]
			if !ok {
				var err error
				exists, err = txRepo.VariantExists(ctx, *in.VariantID)
				if err != nil {
					return nil, err
				}
				variantSeen[*in.VariantID] = exists
			}
			if exists {
				item.VariantID = in.VariantID
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetForCustomer(ctx context.Context, id uuid.UUID, email string) (*models.Order, error) {
	return s.repo.FindByCustomer(ctx, id, email)
}

func (s *service) List(ctx context.Context, p pagination.Params) (*AdminOrderPage, error) {
	return s.repo.ListAll(ctx, p)
}

func (s *service) ListByCustomer(ctx context.Context, email string) ([]CustomerOrderSummary, error) {
	return s.repo.ListByCustomer(ctx, email)
}

// UpdateStatus sets the order status directly. Completing an order triggers
// invoice generation; an invoice failure is logged but never undoes the
// status change.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	order.Status = status
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, err
	}

	if status == enums.OrderStatusCompleted && s.invoices != nil {
		if _, err := s.invoices.EnsureForOrder(ctx, order); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "invoice generation failed", err)
		}
	}
	return order, nil
}

// Cancel handles a customer-initiated cancellation. Cancelling an already
// cancelled order succeeds without touching anything; reserved stock is
// released and the shipment, when present, is cancelled in the same
// transaction. The order row is locked so a racing tracking update cannot
// write back a stale copy.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, email string) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		order, err := txRepo.FindByCustomerForUpdate(ctx, id, email)
		if err != nil {
			return err
		}

		shipment, err := txRepo.FindShipmentByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		shippingStatus := order.ShippingStatus
		if shipment != nil {
			shippingStatus = shipment.Status
		}

		if order.Status == enums.OrderStatusCancelled || shippingStatus == enums.ShippingStatusCancelled {
			result = order
			return nil
		}
		if !order.Status.CancellableByCustomer() || shippingStatus.BlocksCustomerCancel() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		if order.StockCommitted && order.AssignedStoreID != nil {
			caps, err := s.source.Detect(ctx, tx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probing inventory capabilities")
			}
			if err := s.source.Release(ctx, tx, caps, *order.AssignedStoreID, releaseLines(order.Items)); err != nil {
				return err
			}
		}

		order.Status = enums.OrderStatusCancelled
		order.StockCommitted = false
		if !order.ShippingStatus.IsDeliveredOrCompleted() {
			order.ShippingStatus = enums.ShippingStatusCancelled
		}
		if err := txRepo.Save(ctx, order); err != nil {
			return err
		}

		if shipment != nil {
			if err := txRepo.CancelShipment(ctx, shipment, "Shipment cancelled by customer"); err != nil {
				return err
			}
		}

		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, result.ID.String()), "order cancelled by customer")
	return result, nil
}

// MarkPaid records a successful payment and kicks off shipment creation.
func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := txRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if loaded.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already closed")
		}

		loaded.PaymentStatus = enums.PaymentStatusPaid
		loaded.Status = enums.DeriveOrderStatus(loaded.Status, loaded.ShippingStatus, loaded.PaymentStatus)
		if err := txRepo.Save(ctx, loaded); err != nil {
			return err
		}
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.shipping != nil {
		if _, err := s.shipping.EnsureShipment(ctx, order.ID); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "shipment creation after payment failed", err)
		} else if refreshed, err := s.repo.FindByID(ctx, order.ID); err == nil {
			order = refreshed
		}
	}
	return order, nil
}

// MarkPaymentFailed records a failed payment attempt.
func (s *service) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := txRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if loaded.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already closed")
		}

		loaded.PaymentStatus = enums.PaymentStatusFailed
		loaded.Status = enums.DeriveOrderStatus(loaded.Status, loaded.ShippingStatus, loaded.PaymentStatus)
		if err := txRepo.Save(ctx, loaded); err != nil {
			return err
		}
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func releaseLines(items []models.OrderItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil && item.VariantID == nil {
			continue
		}
		lines = append(lines, inventory.Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// newOrderNumber keeps the customer-facing ORD-<timestamp> shape and adds a
// random suffix so two orders created in the same millisecond do not trip the
// unique constraint.
func newOrderNumber() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("ORD-%d-%06d", time.Now().UnixMilli(), n.Int64())
}
