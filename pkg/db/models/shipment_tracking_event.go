package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brunomarket/fulfillment-backend/pkg/enums"
)

// ShipmentTrackingEvent is one audit-trail entry for a shipment.
type ShipmentTrackingEvent struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID  uuid.UUID            `gorm:"column:shipment_id;type:uuid;not null;index"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Status      enums.ShippingStatus `gorm:"column:status;not null"`
	Location    *string              `gorm:"column:location"`
	Description *string              `gorm:"column:description"`
	OccurredAt  time.Time            `gorm:"column:occurred_at;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
