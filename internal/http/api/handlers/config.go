package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/markers"
	"github.com/goldenbrick/markermap/internal/settings"
)

// ConfigHandler serves data the map client loads before rendering.
type ConfigHandler struct {
	settings *settings.Store
}

// NewConfigHandler constructs a ConfigHandler.
func NewConfigHandler(store *settings.Store) *ConfigHandler {
	if store == nil {
		store = settings.NewStore()
	}
	return &ConfigHandler{settings: store}
}

// Public returns the site name and initial map view.
func (h *ConfigHandler) Public(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Public())
}

// Icons returns the marker icon catalog.
func (h *ConfigHandler) Icons(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"icons": markers.Icons()})
}
