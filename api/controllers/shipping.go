package controllers

import (
	"net/http"
	"time"

	"github.com/brunomarket/fulfillment-backend/api/responses"
	"github.com/brunomarket/fulfillment-backend/api/validators"
	"github.com/brunomarket/fulfillment-backend/internal/shipping"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
)

type trackingUpdateRequest struct {
	Status      string     `json:"status"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

// ShipmentCreate makes sure an order has a shipment and label.
func ShipmentCreate(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.EnsureShipment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipping.NewShipmentView(shipment))
	}
}

// ShipmentRecordTracking ingests one carrier status report for an order.
// An empty status defaults to in_transit.
func ShipmentRecordTracking(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req trackingUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.RecordTrackingEvent(r.Context(), id, shipping.TrackingUpdate{
			Status:      req.Status,
			Location:    req.Location,
			Description: req.Description,
			OccurredAt:  req.OccurredAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipping.NewShipmentView(shipment))
	}
}

// MyOrderTracking returns the customer tracking page payload.
func MyOrderTracking(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		email, err := validators.RequiredQuery(r, "email")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetTrackingForCustomer(r.Context(), id, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
