package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongyue0721/image-fill-site/internal/assets"
	"github.com/hongyue0721/image-fill-site/internal/generation"
	"github.com/hongyue0721/image-fill-site/internal/http/handlers"
	"github.com/hongyue0721/image-fill-site/internal/latest"
	"github.com/hongyue0721/image-fill-site/internal/metrics"
	"github.com/hongyue0721/image-fill-site/internal/middleware"
	"github.com/hongyue0721/image-fill-site/internal/settings"
	"github.com/hongyue0721/image-fill-site/internal/storage"
)

type okGenerator struct {
	delay time.Duration
}

func (g okGenerator) Run(_ context.Context, requestID, _ string) (*generation.Outcome, error) {
	time.Sleep(g.delay)
	return &generation.Outcome{RequestID: requestID, Provider: "new-api"}, nil
}

func newTestRouter(t *testing.T, rateLimit int) (http.Handler, *metrics.Collector) {
	t.Helper()
	return newTestRouterWith(t, okGenerator{}, func(o *Options) { o.RateLimitPerMin = rateLimit })
}

func newTestRouterWith(t *testing.T, gen handlers.Generator, configure func(*Options)) (http.Handler, *metrics.Collector) {
	t.Helper()
	root := t.TempDir()
	data, err := storage.NewFileStore(filepath.Join(root, "data"))
	require.NoError(t, err)
	uploads, err := storage.NewFileStore(filepath.Join(root, "uploads"))
	require.NoError(t, err)

	logger := zerolog.Nop()
	assetStore := assets.NewStore(uploads, logger)
	_, err = uploads.Write(context.Background(), assets.OriginalKey, []byte("original-jpeg"))
	require.NoError(t, err)

	latestStore, err := latest.NewStore(latest.Options{
		Records: latest.NewFileRecordStore(data, logger),
		Base:    assetStore,
	})
	require.NoError(t, err)

	app, err := handlers.NewApp(handlers.Options{
		Generator:     gen,
		Settings:      settings.NewStore(data, nil, logger),
		Assets:        assetStore,
		Latest:        latestStore,
		AdminPassword: "pw",
		Logger:        logger,
	})
	require.NoError(t, err)

	public := filepath.Join(root, "public")
	require.NoError(t, os.MkdirAll(public, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "index.html"), []byte("<h1>visitor</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(public, "admin.html"), []byte("<h1>admin</h1>"), 0o644))

	collector := metrics.NewCollector(nil)
	opts := Options{
		Metrics:     collector,
		Logger:      logger,
		PublicDir:   public,
		CORSOrigins: []string{"*"},
	}
	if configure != nil {
		configure(&opts)
	}
	return NewRouter(app, opts), collector
}

func do(h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	rec := do(h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestPublicRoutes(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	rec := do(h, http.MethodGet, "/api/public-config", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hasLatest":false`)

	rec = do(h, http.MethodGet, "/api/images/current", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "original-jpeg", rec.Body.String())
}

func TestAdminRoutesRequirePassword(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	rec := do(h, http.MethodPost, "/api/admin/login", `{"password":"pw"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/api/admin/config", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/admin/config", "", map[string]string{middleware.AdminPasswordHeader: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), settings.DefaultPrimaryModel)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	rec = do(h, http.MethodPost, "/api/admin/reset-latest", "", map[string]string{middleware.AdminPasswordHeader: "pw"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateIsRateLimited(t *testing.T) {
	h, _ := newTestRouter(t, 1)

	rec := do(h, http.MethodPost, "/api/generate", `{"text":"cats"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"provider":"new-api"`)

	rec = do(h, http.MethodPost, "/api/generate", `{"text":"cats"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(h, http.MethodGet, "/api/public-config", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	h, _ := newTestRouter(t, 1)

	rec := do(h, http.MethodPost, "/api/generate", `{"text":"cats"}`, map[string]string{"X-Forwarded-For": "203.0.113.1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(h, http.MethodPost, "/api/generate", `{"text":"cats"}`, map[string]string{"X-Forwarded-For": "203.0.113.2"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGenerateRateLimitUsesForwardedForWhenTrusted(t *testing.T) {
	h, _ := newTestRouterWith(t, okGenerator{}, func(o *Options) {
		o.RateLimitPerMin = 1
		o.TrustProxyHeaders = true
	})

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		rec := do(h, http.MethodPost, "/api/generate", `{"text":"cats"}`, map[string]string{"X-Forwarded-For": ip})
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
	rec := do(h, http.MethodPost, "/api/generate", `{"text":"cats"}`, map[string]string{"X-Forwarded-For": "203.0.113.1"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestStaticPages(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	rec := do(h, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "visitor")

	rec = do(h, http.MethodGet, "/admin", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin")

	rec = do(h, http.MethodGet, "/missing.js", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsUseRoutePattern(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	do(h, http.MethodGet, "/healthz", "", nil)

	rec := do(h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `imagefill_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestGenerateOutlivesServerTimeoutsThroughMiddleware(t *testing.T) {
	h, _ := newTestRouterWith(t, okGenerator{delay: 400 * time.Millisecond}, nil)
	srv := httptest.NewUnstartedServer(h)
	srv.Config.WriteTimeout = 150 * time.Millisecond
	srv.Config.ReadTimeout = 150 * time.Millisecond
	srv.Start()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/generate", "application/json", strings.NewReader(`{"text":"cats"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
