package http

import (
	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/apperr"
	log "github.com/sirupsen/logrus"
)

// RespondError aborts the request with the JSON error shape {message, code}.
// The cause is only exposed as detail while gin runs in debug mode.
func RespondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	status := appErr.Status()
	body := gin.H{"message": appErr.Message, "code": appErr.Code}
	if gin.IsDebugging() && appErr.Cause != nil {
		body["detail"] = appErr.Cause.Error()
	}
	if status >= 500 {
		log.WithError(err).WithField("request_id", RequestIDFrom(c)).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}
