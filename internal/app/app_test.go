package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/config"
	"github.com/goldenbrick/markermap/internal/metrics"
	"github.com/goldenbrick/markermap/internal/ratelimit"
	"github.com/goldenbrick/markermap/internal/storage"
)

func TestStorageContextWithoutDatabaseDegrades(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.FallbackPath = filepath.Join(t.TempDir(), "markers.json")

	store := newStorageContext(cfg, nil, metrics.New())
	user, errFind := store.Users().FindByUsername(context.Background(), cfg.Admin.Username)
	if errFind != nil {
		t.Fatalf("expected seeded admin in the local store, got %v", errFind)
	}
	if user.Role != "admin" {
		t.Fatalf("unexpected role %q", user.Role)
	}
	if store.Mode() != storage.ModeDegraded {
		t.Fatalf("expected degraded mode, got %s", store.Mode())
	}
}

func TestNewLoginLimiter(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	limiter, closeLimiter := newLoginLimiter(ctx, cfg)
	closeLimiter()
	if _, ok := limiter.(*ratelimit.MemoryLimiter); !ok {
		t.Fatalf("expected memory limiter without redis, got %T", limiter)
	}

	cfg.Redis.Address = "127.0.0.1:1"
	limiter, closeLimiter = newLoginLimiter(ctx, cfg)
	closeLimiter()
	if _, ok := limiter.(*ratelimit.MemoryLimiter); !ok {
		t.Fatalf("expected fallback to memory limiter for unreachable redis, got %T", limiter)
	}

	cfg.RateLimit.LoginAttempts = 0
	limiter, closeLimiter = newLoginLimiter(ctx, cfg)
	closeLimiter()
	if _, ok := limiter.(ratelimit.Unlimited); !ok {
		t.Fatalf("expected unlimited when throttling is disabled, got %T", limiter)
	}
}

func TestRegisterWebUI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	if errWrite := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644); errWrite != nil {
		t.Fatalf("write index: %v", errWrite)
	}

	withUI := gin.New()
	registerWebUI(withUI, dir)
	rec := httptest.NewRecorder()
	withUI.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "<html></html>" {
		t.Fatalf("expected index page, got %d %q", rec.Code, rec.Body.String())
	}

	apiOnly := gin.New()
	registerWebUI(apiOnly, filepath.Join(dir, "missing"))
	rec = httptest.NewRecorder()
	apiOnly.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a front end, got %d", rec.Code)
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Environment = config.EnvTest
	cfg.Server.Port = 0
	cfg.Server.StaticDir = ""
	cfg.Database.URL = "file:app_run?mode=memory&cache=shared"
	cfg.Storage.FallbackPath = filepath.Join(t.TempDir(), "markers.json")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunServer(ctx, cfg) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run server: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not stop")
	}
}
