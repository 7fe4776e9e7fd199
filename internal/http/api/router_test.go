package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/goldenbrick/markermap/internal/auth"
	"github.com/goldenbrick/markermap/internal/db"
	apphttp "github.com/goldenbrick/markermap/internal/http"
	"github.com/goldenbrick/markermap/internal/markers"
	"github.com/goldenbrick/markermap/internal/metrics"
	"github.com/goldenbrick/markermap/internal/models"
	"github.com/goldenbrick/markermap/internal/ratelimit"
	"github.com/goldenbrick/markermap/internal/security"
	"github.com/goldenbrick/markermap/internal/settings"
	"github.com/goldenbrick/markermap/internal/storage"
)

var dbSeq atomic.Int64

type testServer struct {
	router  *gin.Engine
	storage *storage.Context
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, withPrimary bool) *testServer {
	t.Helper()
	return newLimitedTestServer(t, withPrimary, nil)
}

func newLimitedTestServer(t *testing.T, withPrimary bool, limiter ratelimit.Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New()
	opts := storage.Options{
		SubstitutePath: filepath.Join(t.TempDir(), "markers.json"),
		SeedSubstitute: auth.AdminSeeder("admin", "admin"),
		OnDegrade:      m.OnDegrade,
	}
	if withPrimary {
		conn, errOpen := db.Open(db.Options{DSN: fmt.Sprintf("file:api_%d?mode=memory&cache=shared", dbSeq.Add(1))})
		if errOpen != nil {
			t.Fatalf("open db: %v", errOpen)
		}
		t.Cleanup(func() { db.Close(conn) })
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			t.Fatalf("migrate: %v", errMigrate)
		}
		opts.PrimaryMarkers = storage.NewGormMarkerRepository(conn)
		opts.PrimaryUsers = storage.NewGormUserRepository(conn)
		opts.Pinger = storage.GormPinger(conn)
	}
	store := storage.NewContext(opts)
	if _, errSeed := auth.EnsureDefaultAdmin(context.Background(), store.Users(), "admin", "admin"); errSeed != nil {
		t.Fatalf("seed admin: %v", errSeed)
	}

	codec, errCodec := security.NewTokenCodec("router-test-secret", 0)
	if errCodec != nil {
		t.Fatalf("codec: %v", errCodec)
	}
	authn := auth.NewAuthenticator(store.Users(), codec, limiter, m)

	router := NewRouter(Deps{
		Authenticator: authn,
		Markers:       markers.NewService(store.Markers()),
		Settings:      settings.NewStore(),
		Storage:       store,
		Observer:      m,
		Metrics:       m.Handler(),
		CookieSecure:  true,
		BodyLimit:     50 << 20,
	})
	return &testServer{router: router, storage: store, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/auth/login", fmt.Sprintf(`{"username":%q,"password":%q}`, username, password), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == apphttp.SessionCookieName {
			return cookie
		}
	}
	t.Fatalf("login: no session cookie set")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()

	if errDecode := json.Unmarshal(rec.Body.Bytes(), dst); errDecode != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), errDecode)
	}
}

const createBody = `{"position":{"lat":25.2,"lng":55.27},"title":"Test","description":"d","iconImage":"data:image/png;base64,AAAA"}`

type markerList struct {
	Markers []markers.View `json:"markers"`
}

func TestMarkerLifecycle(t *testing.T) {
	srv := newTestServer(t, true)
	cookie := srv.login(t, "admin", "admin")

	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteStrictMode || cookie.MaxAge <= 0 {
		t.Fatalf("unexpected cookie attributes %+v", cookie)
	}

	rec := srv.do(t, http.MethodPost, "/api/markers", createBody, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Message string       `json:"message"`
		Marker  markers.View `json:"marker"`
	}
	decode(t, rec, &created)
	if created.Marker.ID != 1 || created.Marker.CreatedBy == nil || *created.Marker.CreatedBy != "admin" {
		t.Fatalf("unexpected created marker %+v", created.Marker)
	}

	rec = srv.do(t, http.MethodGet, "/api/markers", "", nil)
	var list markerList
	decode(t, rec, &list)
	if len(list.Markers) != 1 || list.Markers[0].Title != "Test" || len(list.Markers[0].ContentItems) != 0 {
		t.Fatalf("unexpected list %+v", list.Markers)
	}

	rec = srv.do(t, http.MethodDelete, "/api/markers/1", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous delete: expected 403, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodDelete, "/api/markers/1", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var deleted struct {
		DeletedID uint64 `json:"deletedId"`
	}
	decode(t, rec, &deleted)
	if deleted.DeletedID != 1 {
		t.Fatalf("expected deletedId 1, got %d", deleted.DeletedID)
	}

	rec = srv.do(t, http.MethodDelete, "/api/markers/1", "", cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodGet, "/api/markers", "", nil)
	decode(t, rec, &list)
	if len(list.Markers) != 0 {
		t.Fatalf("expected empty list, got %d markers", len(list.Markers))
	}
}

func TestWritesRequireAdmin(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/markers", createBody, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous create: expected 403, got %d", rec.Code)
	}

	forged := &http.Cookie{Name: apphttp.SessionCookieName, Value: "not-a-token"}
	rec = srv.do(t, http.MethodPost, "/api/markers", createBody, forged)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forged create: expected 403, got %d", rec.Code)
	}

	var body map[string]any
	decode(t, rec, &body)
	if body["code"] != "FORBIDDEN" {
		t.Fatalf("unexpected error body %v", body)
	}

	hash, errHash := security.HashPassword("viewer-pass")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	viewer := &models.User{Username: "viewer", Password: hash, Role: models.RoleUser}
	if errCreate := srv.storage.Users().Create(context.Background(), viewer); errCreate != nil {
		t.Fatalf("create viewer: %v", errCreate)
	}
	viewerCookie := srv.login(t, "viewer", "viewer-pass")
	rec = srv.do(t, http.MethodPost, "/api/markers", createBody, viewerCookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user create: expected 403, got %d", rec.Code)
	}

	adminCookie := srv.login(t, "admin", "admin")
	if rec = srv.do(t, http.MethodPost, "/api/markers", createBody, adminCookie); rec.Code != http.StatusCreated {
		t.Fatalf("admin create: expected 201, got %d", rec.Code)
	}
	if rec = srv.do(t, http.MethodDelete, "/api/markers/1", "", viewerCookie); rec.Code != http.StatusForbidden {
		t.Fatalf("user delete: expected 403, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodGet, "/api/markers", "", nil)
	var list markerList
	decode(t, rec, &list)
	if len(list.Markers) != 1 || list.Markers[0].ID != 1 {
		t.Fatalf("expected only the admin marker to remain, got %+v", list.Markers)
	}
}

func TestCreateValidationAndBadIDs(t *testing.T) {
	srv := newTestServer(t, true)
	cookie := srv.login(t, "admin", "admin")

	rec := srv.do(t, http.MethodPost, "/api/markers", `{"title":"x"}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["code"] != "VALIDATION_ERROR" || !strings.Contains(body["message"].(string), "position is required") {
		t.Fatalf("unexpected error body %v", body)
	}

	rec = srv.do(t, http.MethodPost, "/api/markers", `{not json`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: expected 400, got %d", rec.Code)
	}

	for _, path := range []string{"/api/markers/abc", "/api/markers/0", "/api/markers/-1"} {
		if rec = srv.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("GET %s: expected 400, got %d", path, rec.Code)
		}
	}
	if rec = srv.do(t, http.MethodGet, "/api/markers/99", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing marker: expected 404, got %d", rec.Code)
	}
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"wrong"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", rec.Code)
	}
	rec = srv.do(t, http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"admin"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401, got %d", rec.Code)
	}

	if rec = srv.do(t, http.MethodGet, "/api/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me: expected 401, got %d", rec.Code)
	}

	cookie := srv.login(t, "admin", "admin")
	rec = srv.do(t, http.MethodGet, "/api/auth/me", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me struct {
		User auth.Profile `json:"user"`
	}
	decode(t, rec, &me)
	if me.User.Username != "admin" || me.User.Role != auth.RoleAdmin || me.User.CreatedAt == nil {
		t.Fatalf("unexpected profile %+v", me.User)
	}

	rec = srv.do(t, http.MethodPost, "/api/auth/logout", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == apphttp.SessionCookieName && c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected logout to expire the session cookie")
	}
}

func TestDegradedModeKeepsServing(t *testing.T) {
	srv := newTestServer(t, false)

	cookie := srv.login(t, "admin", "admin")
	rec := srv.do(t, http.MethodPost, "/api/markers", createBody, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("degraded create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, "/healthz", "", nil)
	var health map[string]any
	decode(t, rec, &health)
	if rec.Code != http.StatusOK || health["storage"] != string(storage.ModeDegraded) {
		t.Fatalf("expected degraded health, got %d %v", rec.Code, health)
	}

	rec = srv.do(t, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rec.Body.String(), "markermap_storage_degraded 1") {
		t.Fatalf("expected degraded gauge in metrics output")
	}
}

func TestPublicEndpoints(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodGet, "/api/config", "", nil)
	var cfg settings.PublicConfig
	decode(t, rec, &cfg)
	if cfg.SiteName != settings.DefaultSiteName || cfg.Zoom != settings.DefaultMapZoom {
		t.Fatalf("unexpected config %+v", cfg)
	}

	rec = srv.do(t, http.MethodGet, "/api/icons", "", nil)
	var icons struct {
		Icons []markers.Icon `json:"icons"`
	}
	decode(t, rec, &icons)
	if len(icons.Icons) != len(markers.Icons()) {
		t.Fatalf("expected %d icons, got %d", len(markers.Icons()), len(icons.Icons))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/markers", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	gz := httptest.NewRecorder()
	srv.router.ServeHTTP(gz, req)
	if gz.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip marker list, got headers %v", gz.Header())
	}
}

func TestLoginLimitIgnoresForwardedFor(t *testing.T) {
	srv := newLimitedTestServer(t, true, ratelimit.NewMemoryLimiter(3, time.Minute))

	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"wrong"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.RemoteAddr = "203.0.113.9:4321"
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		codes[rec.Code]++
	}
	if codes[http.StatusUnauthorized] != 3 || codes[http.StatusTooManyRequests] != 7 {
		t.Fatalf("expected 3 rejections then 429s, got %v", codes)
	}
}
