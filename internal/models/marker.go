package models

import (
	"time"

	"gorm.io/datatypes"
)

// Marker is a geo-tagged point of interest rendered on the map.
type Marker struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key, assigned by the store.

	Title       string `gorm:"type:varchar(255);not null" json:"title"` // Display title.
	Description string `gorm:"type:text" json:"description"`            // Free text description.

	Latitude  float64 `gorm:"type:decimal(10,8);not null" json:"latitude"`  // WGS84 latitude.
	Longitude float64 `gorm:"type:decimal(11,8);not null" json:"longitude"` // WGS84 longitude.

	IconImage string `gorm:"type:text;not null" json:"iconImage"` // Data URI or path of the pin image.

	// ContentItems holds the ordered media gallery as a JSON array.
	ContentItems datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"contentItems"`

	GoogleMapsURL string  `gorm:"column:google_maps_url;type:text" json:"googleMapsUrl"` // Optional external map link.
	Category      *int    `gorm:"type:integer" json:"category,omitempty"`                // Optional category id.
	CreatedBy     *string `gorm:"type:varchar(50)" json:"createdBy"`                     // Creator username, nil for legacy rows.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`                // Last update timestamp, absent on legacy rows.
}
