package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store is a physical fulfillment location. Stores are deactivated rather
// than deleted once orders reference them. RegionTags holds the shipping
// regions a store explicitly serves; "global" marks a catch-all store.
type Store struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string         `gorm:"column:name;not null"`
	Email          *string        `gorm:"column:email"`
	Phone          *string        `gorm:"column:phone"`
	Address        *string        `gorm:"column:address"`
	RegionDistrict *string        `gorm:"column:region_district"`
	City           *string        `gorm:"column:city"`
	District       *string        `gorm:"column:district"`
	RegionCode     *string        `gorm:"column:region_code"`
	PriorityLevel  int            `gorm:"column:priority_level;not null;default:1"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true"`
	RegionTags     pq.StringArray `gorm:"column:region_tags;type:text[]"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
