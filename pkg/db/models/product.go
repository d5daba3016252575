package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the minimal catalog surface this service needs: order lines
// reference products only to keep live links when the row still exists.
// Catalog CRUD lives in another service.
type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU       *string   `gorm:"column:sku"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ProductVariant is the minimal variant surface referenced by inventory rows
// and order lines.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	SKU       *string   `gorm:"column:sku"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
