package shipping

import (
	"context"
	"fmt"
	"time"

	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// txRunner is the slice of db.Client the service needs.
type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TrackingUpdate is one carrier status report for an order's shipment.
type TrackingUpdate struct {
	Status      string
	Location    *string
	Description *string
	OccurredAt  *time.Time
}

// Service drives shipment creation and tracking.
type Service interface {
	EnsureShipment(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	RecordTrackingEvent(ctx context.Context, orderID uuid.UUID, update TrackingUpdate) (*models.Shipment, error)
	GetTrackingForCustomer(ctx context.Context, orderID uuid.UUID, email string) (*TrackingView, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	provider Provider
	logg     *logger.Logger
}

// NewService wires the shipping service.
func NewService(repo Repository, tx txRunner, provider Provider, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if provider == nil {
		return nil, fmt.Errorf("shipping provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, provider: provider, logg: logg}, nil
}

// EnsureShipment creates the shipment for an order exactly once. An existing
// shipment short-circuits; otherwise a label is created with the provider,
// the order's shipping snapshot updated, and the first tracking event
// recorded.
func (s *service) EnsureShipment(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var shipment *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		order, err := txRepo.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}

		existing, err := txRepo.FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			shipment = existing
			return nil
		}

		shipment, err = s.createShipment(ctx, txRepo, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

func (s *service) createShipment(ctx context.Context, txRepo Repository, order *models.Order) (*models.Shipment, error) {
	label, err := s.provider.CreateLabel(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating shipping label")
	}

	shipment := &models.Shipment{
		ID:       uuid.New(),
		OrderID:  order.ID,
		Provider: s.provider.Name(),
		Status:   enums.ShippingStatusLabelCreated,
	}
	if label.TrackingCode != "" {
		shipment.TrackingCode = &label.TrackingCode
	}
	if label.LabelURL != "" {
		shipment.LabelURL = &label.LabelURL
	}
	if err := txRepo.Insert(ctx, shipment); err != nil {
		return nil, err
	}

	order.ShippingStatus = enums.ShippingStatusLabelCreated
	order.ShippingTrackingCode = shipment.TrackingCode
	order.ShippingLabelURL = shipment.LabelURL
	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusAwaitingPayment, enums.OrderStatusPaid:
		order.Status = enums.OrderStatusProcessing
	}
	if err := txRepo.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	var location *string
	if order.AssignedStoreID != nil {
		location, err = txRepo.StoreName(ctx, *order.AssignedStoreID)
		if err != nil {
			return nil, err
		}
	}
	description := "Shipping label created"
	event := &models.ShipmentTrackingEvent{
		ID:          uuid.New(),
		ShipmentID:  shipment.ID,
		OrderID:     order.ID,
		Status:      enums.ShippingStatusLabelCreated,
		Location:    location,
		Description: &description,
		OccurredAt:  time.Now().UTC(),
	}
	if err := txRepo.InsertEvent(ctx, event); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "shipment created")
	return shipment, nil
}

// RecordTrackingEvent applies one carrier status report. The shipment is
// created on the fly when missing, the event appended, and the order's
// snapshot and lifecycle status updated from the new shipping state.
func (s *service) RecordTrackingEvent(ctx context.Context, orderID uuid.UUID, update TrackingUpdate) (*models.Shipment, error) {
	status := enums.NormalizeShippingStatus(update.Status)
	if status == "" {
		status = enums.ShippingStatusInTransit
	}

	var shipment *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		order, err := txRepo.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}

		shipment, err = txRepo.FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if shipment == nil {
			shipment, err = s.createShipment(ctx, txRepo, order)
			if err != nil {
				return err
			}
		}

		shipment.Status = status
		if err := txRepo.Save(ctx, shipment); err != nil {
			return err
		}

		description := update.Description
		if description == nil {
			text := defaultDescription(status)
			description = &text
		}
		occurredAt := time.Now().UTC()
		if update.OccurredAt != nil {
			occurredAt = update.OccurredAt.UTC()
		}
		event := &models.ShipmentTrackingEvent{
			ID:          uuid.New(),
			ShipmentID:  shipment.ID,
			OrderID:     order.ID,
			Status:      status,
			Location:    update.Location,
			Description: description,
			OccurredAt:  occurredAt,
		}
		if err := txRepo.InsertEvent(ctx, event); err != nil {
			return err
		}

		order.ShippingStatus = status
		if shipment.TrackingCode != nil {
			order.ShippingTrackingCode = shipment.TrackingCode
		}
		if shipment.LabelURL != nil {
			order.ShippingLabelURL = shipment.LabelURL
		}
		order.Status = enums.DeriveOrderStatus(order.Status, status, order.PaymentStatus)
		return txRepo.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithField(logCtx, "shipping_status", status.String()), "tracking event recorded")
	return shipment, nil
}

// GetTrackingForCustomer builds the customer tracking page payload. The live
// shipment row wins over the order's snapshot when both exist.
func (s *service) GetTrackingForCustomer(ctx context.Context, orderID uuid.UUID, email string) (*TrackingView, error) {
	order, err := s.repo.FindOrderByCustomer(ctx, orderID, email)
	if err != nil {
		return nil, err
	}

	shipment, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := order.ShippingStatus
	trackingCode := order.ShippingTrackingCode
	labelURL := order.ShippingLabelURL
	if shipment != nil {
		status = shipment.Status
		if shipment.TrackingCode != nil {
			trackingCode = shipment.TrackingCode
		}
		if shipment.LabelURL != nil {
			labelURL = shipment.LabelURL
		}
	}

	events, err := s.repo.ListEventsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	eventViews := make([]TrackingEventView, 0, len(events))
	for _, event := range events {
		eventViews = append(eventViews, TrackingEventView{
			Status:      event.Status,
			Location:    event.Location,
			Description: event.Description,
			OccurredAt:  event.OccurredAt,
		})
	}

	return &TrackingView{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		OrderStatus:    order.Status,
		ShippingStatus: status,
		TrackingCode:   trackingCode,
		LabelURL:       labelURL,
		Steps:          buildProgressSteps(status),
		Events:         eventViews,
	}, nil
}
