package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/apperr"
	apphttp "github.com/goldenbrick/markermap/internal/http"
	"github.com/goldenbrick/markermap/internal/markers"
)

// MarkerHandler serves marker endpoints.
type MarkerHandler struct {
	svc *markers.Service
}

// NewMarkerHandler constructs a MarkerHandler.
func NewMarkerHandler(svc *markers.Service) *MarkerHandler {
	return &MarkerHandler{svc: svc}
}

// List returns every marker, newest first.
func (h *MarkerHandler) List(c *gin.Context) {
	views, errList := h.svc.List(c.Request.Context())
	if errList != nil {
		apphttp.RespondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markers": views})
}

// Get returns one marker.
func (h *MarkerHandler) Get(c *gin.Context) {
	id, errID := markerID(c)
	if errID != nil {
		apphttp.RespondError(c, errID)
		return
	}
	view, errGet := h.svc.Get(c.Request.Context(), id)
	if errGet != nil {
		apphttp.RespondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marker": view})
}

// Create stores a marker attributed to the caller.
func (h *MarkerHandler) Create(c *gin.Context) {
	var body markers.CreateInput
	if errBind := apphttp.BindJSON(c, &body); errBind != nil {
		apphttp.RespondError(c, errBind)
		return
	}
	view, errCreate := h.svc.Create(c.Request.Context(), apphttp.IdentityFrom(c), body)
	if errCreate != nil {
		apphttp.RespondError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Marker created successfully",
		"marker":  view,
	})
}

// Delete removes a marker by id.
func (h *MarkerHandler) Delete(c *gin.Context) {
	id, errID := markerID(c)
	if errID != nil {
		apphttp.RespondError(c, errID)
		return
	}
	deletedID, errDelete := h.svc.Delete(c.Request.Context(), apphttp.IdentityFrom(c), id)
	if errDelete != nil {
		apphttp.RespondError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Marker deleted successfully",
		"deletedId": deletedID,
	})
}

// markerID parses the :id path segment.
func markerID(c *gin.Context) (uint64, error) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		return 0, apperr.Validation("Invalid marker id")
	}
	return id, nil
}
