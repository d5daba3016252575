package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brunomarket/fulfillment-backend/internal/repo"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Renderer pushes a generated invoice to the accounting backend. Rendering
// is best-effort; the invoice row is the source of truth and Synced records
// whether the push went through.
type Renderer interface {
	Render(ctx context.Context, invoice *models.Invoice, order *models.Order) error
}

// Repository handles invoice persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to invoice operations.
func NewRepository(db *gorm.DB) Repository {
	return Repository{Base: repo.NewBase(db)}
}

// FindByOrder returns the invoice for an order, or nil when none exists.
func (r Repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.DB(ctx).Where("CAST(order_id AS TEXT) = ?", orderID.String()).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
	}
	return &invoice, nil
}

// Insert persists a new invoice.
func (r Repository) Insert(ctx context.Context, invoice *models.Invoice) error {
	if err := r.DB(ctx).Create(invoice).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting invoice")
	}
	return nil
}

// Save writes back an invoice.
func (r Repository) Save(ctx context.Context, invoice *models.Invoice) error {
	if err := r.DB(ctx).Save(invoice).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving invoice")
	}
	return nil
}

// Service issues invoices for completed orders.
type Service interface {
	EnsureForOrder(ctx context.Context, order *models.Order) (*models.Invoice, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error)
}

type service struct {
	repo     Repository
	renderer Renderer
	logg     *logger.Logger
}

// NewService wires the invoice service. The renderer is optional.
func NewService(repo Repository, renderer Renderer, logg *logger.Logger) (Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, renderer: renderer, logg: logg}, nil
}

// EnsureForOrder generates an invoice for the order exactly once. An
// existing invoice short-circuits; a rendering failure leaves the row
// unsynced rather than failing the call.
func (s *service) EnsureForOrder(ctx context.Context, order *models.Order) (*models.Invoice, error) {
	existing, err := s.repo.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: newInvoiceNumber(),
		OrderID:       order.ID,
	}
	if err := s.repo.Insert(ctx, invoice); err != nil {
		return nil, err
	}

	if s.renderer != nil {
		if err := s.renderer.Render(ctx, invoice, order); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "invoice rendering failed", err)
		} else {
			invoice.Synced = true
			if err := s.repo.Save(ctx, invoice); err != nil {
				return nil, err
			}
		}
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "invoice generated")
	return invoice, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func newInvoiceNumber() string {
	return fmt.Sprintf("INV-%d", time.Now().UnixMilli())
}
