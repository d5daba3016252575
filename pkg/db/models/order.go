package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brunomarket/fulfillment-backend/pkg/enums"
)

// Order is the authoritative order record. AssignedStoreID stays nil until
// routing succeeds; StockCommitted is true iff a reservation against that
// store is live and unreleased.
type Order struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber          string               `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName         string               `gorm:"column:customer_name;not null"`
	CustomerEmail        string               `gorm:"column:customer_email;not null"`
	ShippingAddress      string               `gorm:"column:shipping_address;not null"`
	ShippingRegion       *string              `gorm:"column:shipping_region"`
	AssignedStoreID      *uuid.UUID           `gorm:"column:assigned_store_id;type:uuid"`
	Status               enums.OrderStatus    `gorm:"column:status;not null;default:'pending'"`
	PaymentStatus        enums.PaymentStatus  `gorm:"column:payment_status;not null;default:'pending'"`
	ShippingStatus       enums.ShippingStatus `gorm:"column:shipping_status;not null;default:'not_created'"`
	Subtotal             decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal        decimal.Decimal      `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	Total                decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	StockCommitted       bool                 `gorm:"column:stock_committed;not null;default:false"`
	ShippingTrackingCode *string              `gorm:"column:shipping_tracking_code"`
	ShippingLabelURL     *string              `gorm:"column:shipping_label_url"`
	Items                []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
