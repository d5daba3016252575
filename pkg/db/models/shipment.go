package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brunomarket/fulfillment-backend/pkg/enums"
)

// Shipment is the one-per-order shipping record created by the shipping
// subsystem once payment clears.
type Shipment struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Provider     string               `gorm:"column:provider;not null;default:'ctt'"`
	Status       enums.ShippingStatus `gorm:"column:status;not null;default:'created'"`
	TrackingCode *string              `gorm:"column:tracking_code;uniqueIndex"`
	LabelURL     *string              `gorm:"column:label_url"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
