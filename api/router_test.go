package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inventory/api/middleware"
	"inventory/config"
	"inventory/core"
	"inventory/database"

	"github.com/tidwall/gjson"
)

func newTestRouter(t *testing.T, mutate func(*config.Configuration)) (http.Handler, *config.Configuration) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Configuration{}
	cfg.Database.Path = filepath.Join(dir, "inventory.db")
	cfg.Auth.Username = "admin"
	cfg.Auth.Password = "secret"
	cfg.Auth.LoginRateLimit = 3
	cfg.Auth.LoginRateWindow = time.Minute
	cfg.CORS.Origins = []string{"http://localhost:4200"}
	cfg.Uploads = config.UploadConfig{
		ImagesDir:       filepath.Join(dir, "images"),
		ThumbnailsDir:   filepath.Join(dir, "thumbnails"),
		DatasheetsDir:   filepath.Join(dir, "datasheets"),
		MaxSize:         1024,
		ThumbnailWidth:  10,
		ThumbnailHeight: 10,
		FetchTimeout:    time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("dirs: %v", err)
	}
	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRouter(store, core.NewUploader(cfg.Uploads), cfg), cfg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("without token: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer "+middleware.Token("admin", "secret"))
	rec = serve(h, req)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("with token: %d %s", rec.Code, rec.Body.String())
	}
}

func TestPublicRoutes(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"secret"}`))
	rec := serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	token := gjson.Get(rec.Body.String(), "token").String()

	req = httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := serve(h, req); rec.Code != http.StatusOK {
		t.Errorf("token from login rejected: %d", rec.Code)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"wrong"}`))
		last = serve(h, req).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("fourth attempt: %d, want 429", last)
	}
}

func TestPreflightBypassesAuth(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/items/1", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	rec := serve(h, req)
	if rec.Code == http.StatusUnauthorized {
		t.Fatal("preflight hit the auth gate")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:4200" {
		t.Errorf("headers: %v", rec.Header())
	}
}

func TestUnknownAPIRouteIsJSON404(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound || gjson.Get(rec.Body.String(), "error").String() == "" {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpointToggle(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: %d", rec.Code)
	}

	h, _ = newTestRouter(t, func(c *config.Configuration) { c.Metrics.Enabled = true })
	serve(h, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "inventory_api_requests_total") {
		t.Errorf("metrics enabled: %d", rec.Code)
	}
}

func TestStaticClientFallback(t *testing.T) {
	static := t.TempDir()
	os.WriteFile(filepath.Join(static, "index.html"), []byte("<app-root></app-root>"), 0644)
	os.WriteFile(filepath.Join(static, "main.js"), []byte("console.log(1)"), 0644)
	h, _ := newTestRouter(t, func(c *config.Configuration) { c.Server.StaticDir = static })

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/main.js", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "console.log") {
		t.Errorf("asset: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/items/42/edit", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "app-root") {
		t.Errorf("client route: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/uploads/images/missing.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing upload: %d", rec.Code)
	}
}
