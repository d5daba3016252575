package models

import "time"

// GeocodeCacheEntry persists resolved coordinates per normalized query.
// Entries are upserted last-write-wins and never evicted here.
type GeocodeCacheEntry struct {
	QueryKey  string    `gorm:"column:query_key;primaryKey"`
	QueryRaw  string    `gorm:"column:query_raw"`
	Latitude  float64   `gorm:"column:latitude;not null"`
	Longitude float64   `gorm:"column:longitude;not null"`
	Provider  string    `gorm:"column:provider;default:'nominatim'"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name.
func (GeocodeCacheEntry) TableName() string {
	return "geocode_cache"
}
