package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/apperr"
	"github.com/goldenbrick/markermap/internal/util"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestID"

// RequestObserver records finished requests. *metrics.Metrics satisfies it.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// RequestIDMiddleware keeps an upstream request id or generates a new one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestIDMiddleware.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLoggerMiddleware logs each request once after it completes.
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": RequestIDFrom(c),
			"body_bytes": c.Writer.Size(),
			"user_agent": c.Request.UserAgent(),
		}
		if raw := c.Request.URL.RawQuery; raw != "" {
			fields["query"] = util.MaskSensitiveQuery(raw)
		}
		if identity := IdentityFrom(c); identity != nil {
			fields["username"] = identity.Username
		}

		entry := log.WithFields(fields)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// MetricsMiddleware reports every request to observer by matched route.
func MetricsMiddleware(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if observer == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		observer.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// BodyLimitMiddleware caps request bodies at limit bytes.
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			if c.Request.ContentLength > limit {
				RespondError(c, apperr.New(apperr.CodeValidation, "Request body too large"))
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// RecoveryMiddleware turns panics into the standard 500 error response.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		cause, ok := recovered.(error)
		if !ok {
			cause = fmt.Errorf("panic: %v", recovered)
		}
		RespondError(c, apperr.Internal(cause))
	})
}

// BindJSON decodes the request body into dst and maps failures to validation errors.
func BindJSON(c *gin.Context, dst any) error {
	if errBind := c.ShouldBindJSON(dst); errBind != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(errBind, &tooLarge) {
			return apperr.Wrap(apperr.CodeValidation, "Request body too large", errBind)
		}
		return apperr.Wrap(apperr.CodeValidation, "Invalid JSON body", errBind)
	}
	return nil
}
