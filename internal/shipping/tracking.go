package shipping

import (
	"time"

	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/enums"
	"github.com/google/uuid"
)

// Progress step keys shown on the customer tracking page.
const (
	StepPackaging      = "packaging"
	StepShipped        = "shipped"
	StepOutForDelivery = "out_for_delivery"
	StepDelivered      = "delivered"
	StepCancelled      = "cancelled"
)

var progressOrder = []string{StepPackaging, StepShipped, StepOutForDelivery, StepDelivered}

var stepLabels = map[string]string{
	StepPackaging:      "Packaging",
	StepShipped:        "Shipped",
	StepOutForDelivery: "Out for delivery",
	StepDelivered:      "Delivered",
	StepCancelled:      "Cancelled",
}

var stepDescriptions = map[string]string{
	StepPackaging:      "Order is being prepared and packaged",
	StepShipped:        "Parcel has left the origin store",
	StepOutForDelivery: "Courier is out for delivery",
	StepDelivered:      "Parcel delivered",
	StepCancelled:      "Shipment cancelled",
}

// stepForStatus folds a shipping status into one of the progress steps.
// Unknown carrier statuses count as in flight.
func stepForStatus(status enums.ShippingStatus) string {
	switch status {
	case enums.ShippingStatusNotCreated, enums.ShippingStatusCreated, enums.ShippingStatusLabelCreated:
		return StepPackaging
	case enums.ShippingStatusShipped, enums.ShippingStatusInTransit:
		return StepShipped
	case enums.ShippingStatusOutForDelivery:
		return StepOutForDelivery
	case enums.ShippingStatusDelivered, enums.ShippingStatusCompleted:
		return StepDelivered
	case enums.ShippingStatusCancelled:
		return StepCancelled
	default:
		return StepShipped
	}
}

func defaultDescription(status enums.ShippingStatus) string {
	return stepDescriptions[stepForStatus(status)]
}

// ProgressStep is one entry of the customer-facing progress bar.
type ProgressStep struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
	Current     bool   `json:"current"`
}

// buildProgressSteps renders the four-stage progress bar for a status. A
// cancelled shipment shows the regular stages untouched plus a terminal
// cancelled entry.
func buildProgressSteps(status enums.ShippingStatus) []ProgressStep {
	current := stepForStatus(status)

	if current == StepCancelled {
		steps := make([]ProgressStep, 0, len(progressOrder)+1)
		for _, key := range progressOrder {
			steps = append(steps, ProgressStep{Key: key, Label: stepLabels[key], Description: stepDescriptions[key]})
		}
		return append(steps, ProgressStep{
			Key:         StepCancelled,
			Label:       stepLabels[StepCancelled],
			Description: stepDescriptions[StepCancelled],
			Done:        true,
			Current:     true,
		})
	}

	currentIdx := 0
	for i, key := range progressOrder {
		if key == current {
			currentIdx = i
			break
		}
	}

	steps := make([]ProgressStep, 0, len(progressOrder))
	for i, key := range progressOrder {
		steps = append(steps, ProgressStep{
			Key:         key,
			Label:       stepLabels[key],
			Description: stepDescriptions[key],
			Done:        i <= currentIdx,
			Current:     i == currentIdx,
		})
	}
	return steps
}

// ShipmentView is the public shape of a shipment row.
type ShipmentView struct {
	ID           uuid.UUID            `json:"id"`
	OrderID      uuid.UUID            `json:"order_id"`
	Provider     string               `json:"provider"`
	Status       enums.ShippingStatus `json:"status"`
	TrackingCode *string              `json:"tracking_code"`
	LabelURL     *string              `json:"label_url"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewShipmentView maps a shipment row to its public shape.
func NewShipmentView(shipment *models.Shipment) ShipmentView {
	return ShipmentView{
		ID:           shipment.ID,
		OrderID:      shipment.OrderID,
		Provider:     shipment.Provider,
		Status:       shipment.Status,
		TrackingCode: shipment.TrackingCode,
		LabelURL:     shipment.LabelURL,
		CreatedAt:    shipment.CreatedAt,
		UpdatedAt:    shipment.UpdatedAt,
	}
}

// TrackingEventView is one audit trail entry as the API exposes it.
type TrackingEventView struct {
	Status      enums.ShippingStatus `json:"status"`
	Location    *string              `json:"location"`
	Description *string              `json:"description"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// TrackingView is the customer tracking payload for one order.
type TrackingView struct {
	OrderID        uuid.UUID            `json:"order_id"`
	OrderNumber    string               `json:"order_number"`
	OrderStatus    enums.OrderStatus    `json:"order_status"`
	ShippingStatus enums.ShippingStatus `json:"shipping_status"`
	TrackingCode   *string              `json:"tracking_code"`
	LabelURL       *string              `json:"label_url"`
	Steps          []ProgressStep       `json:"steps"`
	Events         []TrackingEventView  `json:"events"`
}
