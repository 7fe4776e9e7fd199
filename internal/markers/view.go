package markers

import (
	"time"

	"github.com/goldenbrick/markermap/internal/media"
	"github.com/goldenbrick/markermap/internal/models"
	log "github.com/sirupsen/logrus"
)

// Position is a latitude/longitude pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// View is the client representation of a marker.
type View struct {
	ID            uint64      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Position      Position    `json:"position"`
	IconImage     string      `json:"iconImage"`
	GoogleMapsURL string      `json:"googleMapsUrl"`
	ContentItems  media.Items `json:"contentItems"`
	Category      *int        `json:"category,omitempty"`
	CreatedBy     *string     `json:"createdBy"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     *time.Time  `json:"updatedAt,omitempty"`
}

// NewView shapes a stored marker for clients. An unreadable gallery is shown as empty.
func NewView(m models.Marker) View {
	items, errDecode := media.Decode(m.ContentItems)
	if errDecode != nil {
		log.WithError(errDecode).WithField("marker_id", m.ID).Warn("markers: stored gallery is unreadable")
		items = media.Items{}
	}
	view := View{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		Position:      Position{Lat: m.Latitude, Lng: m.Longitude},
		IconImage:     m.IconImage,
		GoogleMapsURL: m.GoogleMapsURL,
		ContentItems:  items,
		Category:      m.Category,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
	if !m.UpdatedAt.IsZero() {
		updatedAt := m.UpdatedAt
		view.UpdatedAt = &updatedAt
	}
	return view
}

// NewViews shapes a list of markers, keeping order.
func NewViews(rows []models.Marker) []View {
	out := make([]View, 0, len(rows))
	for _, m := range rows {
		out = append(out, NewView(m))
	}
	return out
}
