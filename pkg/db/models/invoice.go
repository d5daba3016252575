package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice records that an invoice was generated for an order. Rendering is
// delegated to an external collaborator; at most one invoice exists per
// order and regeneration short-circuits on an existing row.
type Invoice struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceNumber string    `gorm:"column:invoice_number;not null;uniqueIndex"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Synced        bool      `gorm:"column:synced;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
