package models

import (
	"time"

	"github.com/google/uuid"
)

// StoreStock is the product/variant-keyed inventory shape. VariantID is
// nullable: rows without a variant hold product-level stock.
type StoreStock struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID  `gorm:"column:store_id;type:uuid;not null"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Quantity  int        `gorm:"column:quantity;not null;default:0"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name.
func (StoreStock) TableName() string {
	return "store_stock"
}
