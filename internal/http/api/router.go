// Package api registers the HTTP surface of the marker map.
package api

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/auth"
	apphttp "github.com/goldenbrick/markermap/internal/http"
	"github.com/goldenbrick/markermap/internal/http/api/handlers"
	"github.com/goldenbrick/markermap/internal/markers"
	"github.com/goldenbrick/markermap/internal/settings"
	log "github.com/sirupsen/logrus"
)

// Deps are the services the routes are served from.
type Deps struct {
	Authenticator *auth.Authenticator
	Markers       *markers.Service
	Settings      *settings.Store
	Storage       handlers.ModeReporter
	Observer      apphttp.RequestObserver
	Metrics       http.Handler
	CookieSecure  bool
	BodyLimit     int64
	// TrustedProxies are the only peers whose X-Forwarded-For is used for the client IP.
	TrustedProxies []string
}

// NewRouter builds the gin engine with the standard middleware chain and all routes.
func NewRouter(deps Deps) *gin.Engine {
	engine := gin.New()
	if errProxies := engine.SetTrustedProxies(deps.TrustedProxies); errProxies != nil {
		log.WithError(errProxies).Warn("invalid trusted proxies, forwarding headers ignored")
		_ = engine.SetTrustedProxies(nil)
	}
	engine.Use(
		apphttp.RequestIDMiddleware(),
		apphttp.RequestLoggerMiddleware(),
		apphttp.RecoveryMiddleware(),
		apphttp.MetricsMiddleware(deps.Observer),
		apphttp.BodyLimitMiddleware(deps.BodyLimit),
	)
	if deps.Authenticator != nil {
		engine.Use(apphttp.SessionMiddleware(deps.Authenticator))
	}
	RegisterRoutes(engine, deps)
	return engine
}

// RegisterRoutes registers API, health and metrics routes.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.Storage)
	r.GET("/healthz", healthHandler.Healthz)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := r.Group("/api")

	configHandler := handlers.NewConfigHandler(deps.Settings)
	api.GET("/config", configHandler.Public)
	api.GET("/icons", configHandler.Icons)

	if deps.Authenticator != nil {
		authHandler := handlers.NewAuthHandler(deps.Authenticator, deps.CookieSecure)
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", authHandler.Me)
		api.POST("/auth/logout", authHandler.Logout)
	}

	if deps.Markers != nil {
		markerHandler := handlers.NewMarkerHandler(deps.Markers)
		api.GET("/markers", gzip.Gzip(gzip.DefaultCompression), markerHandler.List)
		api.GET("/markers/:id", markerHandler.Get)

		writes := api.Group("")
		writes.Use(apphttp.RequireAdmin())
		writes.POST("/markers", markerHandler.Create)
		writes.DELETE("/markers/:id", markerHandler.Delete)
	}
}
