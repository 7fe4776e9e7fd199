package db

import (
	"fmt"

	"github.com/goldenbrick/markermap/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate creates or upgrades the schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errLegacy := renameLegacyMarkerColumns(conn); errLegacy != nil {
		return errLegacy
	}
	if errAuto := conn.AutoMigrate(
		&models.User{},
		&models.Marker{},
		&models.MapSetting{},
	); errAuto != nil {
		return fmt.Errorf("db: auto migrate: %w", errAuto)
	}
	return nil
}

// renameLegacyMarkerColumns moves columns created by older deployments to their current names.
func renameLegacyMarkerColumns(conn *gorm.DB) error {
	migrator := conn.Migrator()
	if !migrator.HasTable(&models.Marker{}) {
		return nil
	}
	renames := [][2]string{
		{"google_maps_link", "google_maps_url"},
	}
	for _, pair := range renames {
		from, to := pair[0], pair[1]
		if !migrator.HasColumn(&models.Marker{}, from) || migrator.HasColumn(&models.Marker{}, to) {
			continue
		}
		if errRename := migrator.RenameColumn(&models.Marker{}, from, to); errRename != nil {
			return fmt.Errorf("db: rename markers.%s: %w", from, errRename)
		}
		log.Infof("db: renamed markers.%s to %s", from, to)
	}
	return nil
}
