package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/storage"
)

// ModeReporter reports which backend serves storage. *storage.Context satisfies it.
type ModeReporter interface {
	Mode() storage.Mode
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	storage ModeReporter
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(reporter ModeReporter) *HealthHandler {
	return &HealthHandler{storage: reporter}
}

// Healthz reports the storage mode. Degraded still serves requests, so it stays 200.
func (h *HealthHandler) Healthz(c *gin.Context) {
	mode := storage.ModeDegraded
	if h.storage != nil {
		mode = h.storage.Mode()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "storage": mode})
}
