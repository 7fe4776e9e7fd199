package markers

import (
	"strings"

	"github.com/goldenbrick/markermap/internal/media"
)

// PositionInput is a submitted coordinate pair. Pointers distinguish 0 from missing.
type PositionInput struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

// CreateInput is the marker creation request body.
type CreateInput struct {
	Position      *PositionInput `json:"position" validate:"required"`
	Title         string         `json:"title" validate:"required,max=255"`
	Description   string         `json:"description" validate:"required"`
	IconImage     string         `json:"iconImage" validate:"required"`
	GoogleMapsURL string         `json:"googleMapsUrl" validate:"omitempty,max=2048"`
	Category      *int           `json:"category" validate:"omitempty,gte=0"`
	ContentItems  []media.Input  `json:"contentItems"`
}

// normalize trims free-text fields in place.
func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.IconImage = strings.TrimSpace(in.IconImage)
	in.GoogleMapsURL = strings.TrimSpace(in.GoogleMapsURL)
}
