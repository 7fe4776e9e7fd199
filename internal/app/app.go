// Package app wires configuration, storage, services and the HTTP server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/auth"
	"github.com/goldenbrick/markermap/internal/config"
	"github.com/goldenbrick/markermap/internal/db"
	"github.com/goldenbrick/markermap/internal/http/api"
	"github.com/goldenbrick/markermap/internal/logging"
	"github.com/goldenbrick/markermap/internal/markers"
	"github.com/goldenbrick/markermap/internal/metrics"
	"github.com/goldenbrick/markermap/internal/ratelimit"
	"github.com/goldenbrick/markermap/internal/security"
	"github.com/goldenbrick/markermap/internal/settings"
	"github.com/goldenbrick/markermap/internal/storage"
	"github.com/goldenbrick/markermap/internal/util"
	"github.com/goldenbrick/markermap/internal/webui"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	closer, errLog := logging.Setup(cfg.Log)
	if errLog != nil {
		return errLog
	}
	defer func() { _ = closer.Close() }()

	conn, err := db.Open(dbOptions(cfg.Database))
	if err != nil {
		return err
	}
	defer db.Close(conn)
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("migrations applied")
	return nil
}

// RunServer serves the marker API until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	closer, errLog := logging.Setup(cfg.Log)
	if errLog != nil {
		return errLog
	}
	defer func() { _ = closer.Close() }()
	setGinMode(cfg.Server.Environment)

	m := metrics.New()
	conn := openPrimary(ctx, cfg)
	if conn != nil {
		defer db.Close(conn)
	}

	store := newStorageContext(cfg, conn, m)
	if _, errSeed := auth.EnsureDefaultAdmin(ctx, store.Users(), cfg.Admin.Username, cfg.Admin.Password); errSeed != nil {
		log.WithError(errSeed).Error("default admin could not be ensured")
	}
	if cfg.Seed.SampleMarkers {
		if added, errSamples := markers.SeedSamples(ctx, store.Markers(), cfg.Admin.Username); errSamples != nil {
			log.WithError(errSamples).Warn("sample markers not seeded")
		} else if added > 0 {
			log.Infof("seeded %d sample markers", added)
		}
	}

	siteSettings := settings.NewStore()
	settings.NewRefresher(siteSettings, conn, cfg.Server.SettingsRefresh).SkipWhen(store.Degraded).Start(ctx)

	limiter, closeLimiter := newLoginLimiter(ctx, cfg)
	defer closeLimiter()

	tokens, errCodec := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Expiry)
	if errCodec != nil {
		return fmt.Errorf("app: token codec: %w", errCodec)
	}
	authn := auth.NewAuthenticator(store.Users(), tokens, limiter, auth.Hooks{auth.NewStatusCodeHook(), m})

	router := api.NewRouter(api.Deps{
		Authenticator:  authn,
		Markers:        markers.NewService(store.Markers()),
		Settings:       siteSettings,
		Storage:        store,
		Observer:       m,
		Metrics:        m.Handler(),
		CookieSecure:   cfg.Server.CookieSecure,
		BodyLimit:      cfg.Server.BodyLimit,
		TrustedProxies: cfg.Server.TrustedProxies,
	})
	registerWebUI(router, cfg.Server.StaticDir)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (environment=%s, storage=%s)", server.Addr, cfg.Server.Environment, store.Mode())
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", errServe)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("app: shutdown: %w", errShutdown)
	}
	return nil
}

// openPrimary opens and migrates the database. Failures are logged and yield nil,
// which makes the storage context serve from the substitute store.
func openPrimary(ctx context.Context, cfg config.AppConfig) *gorm.DB {
	dsn := cfg.Database.DSN()
	conn, errOpen := db.Open(dbOptions(cfg.Database))
	if errOpen != nil {
		log.WithError(errOpen).WithField("dsn", util.MaskDSN(dsn)).Warn("database unavailable, markers will be served from the local store")
		return nil
	}
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		log.WithError(errMigrate).Warn("database migration failed, markers will be served from the local store")
		db.Close(conn)
		return nil
	}
	log.WithField("dsn", util.MaskDSN(dsn)).Infof("connected to %s", db.DialectName(conn))
	return conn
}

func newStorageContext(cfg config.AppConfig, conn *gorm.DB, m *metrics.Metrics) *storage.Context {
	opts := storage.Options{
		SubstitutePath: util.ResolveDataPath(cfg.Storage.FallbackPath),
		SeedSubstitute: auth.AdminSeeder(cfg.Admin.Username, cfg.Admin.Password),
		OnDegrade:      m.OnDegrade,
		PingTimeout:    cfg.Storage.PingTimeout,
	}
	if conn != nil {
		opts.PrimaryMarkers = storage.NewGormMarkerRepository(conn)
		opts.PrimaryUsers = storage.NewGormUserRepository(conn)
		opts.Pinger = storage.GormPinger(conn)
	}
	return storage.NewContext(opts)
}

// newLoginLimiter prefers redis so limits hold across replicas.
func newLoginLimiter(ctx context.Context, cfg config.AppConfig) (ratelimit.Limiter, func()) {
	attempts, window := cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow
	if attempts <= 0 || window <= 0 {
		return ratelimit.Unlimited{}, func() {}
	}
	if cfg.Redis.Address == "" {
		return ratelimit.NewMemoryLimiter(attempts, window), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		log.WithError(errPing).Warn("redis unreachable, using in-process login limiter")
		_ = client.Close()
		return ratelimit.NewMemoryLimiter(attempts, window), func() {}
	}
	log.Infof("login limiter backed by redis at %s", cfg.Redis.Address)
	return ratelimit.NewRedisLimiter(client, "", attempts, window), func() { _ = client.Close() }
}

// registerWebUI serves the front end when dir holds one.
func registerWebUI(router *gin.Engine, dir string) {
	if strings.TrimSpace(dir) == "" {
		webui.NotFoundJSON(router)
		return
	}
	bundle, errLoad := webui.Load(dir)
	if errLoad != nil {
		log.WithError(errLoad).Info("front end not served")
		webui.NotFoundJSON(router)
		return
	}
	bundle.Register(router)
}

func dbOptions(cfg config.DatabaseConfig) db.Options {
	return db.Options{
		DSN:             cfg.DSN(),
		ConnectTimeout:  cfg.ConnectTimeout,
		ConnMaxIdleTime: cfg.IdleTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
	}
}

func setGinMode(environment string) {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case config.EnvProduction:
		gin.SetMode(gin.ReleaseMode)
	case config.EnvTest:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
