package models

import (
	"time"

	"github.com/google/uuid"
)

// StoreInventory is the variant-keyed inventory shape: one row per
// (store, variant). Legacy databases may carry duplicate rows for the same
// key; readers take MAX rather than SUM to avoid double counting.
type StoreInventory struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID `gorm:"column:store_id;type:uuid;not null"`
	VariantID     uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	StockQuantity int       `gorm:"column:stock_quantity;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name.
func (StoreInventory) TableName() string {
	return "store_inventory"
}
