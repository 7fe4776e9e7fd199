package models

import (
	"time"

	"gorm.io/datatypes"
)

// MapSetting stores one public map setting (site name, map centre, zoom) as JSON.
type MapSetting struct {
	Key       string         `gorm:"type:varchar(100);primaryKey"`                      // Setting key.
	Value     datatypes.JSON `gorm:"type:jsonb"`                                        // JSON-encoded value.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"` // Last update timestamp.
}

// TableName keeps map settings apart from any other settings table in a shared database.
func (MapSetting) TableName() string {
	return "map_settings"
}
