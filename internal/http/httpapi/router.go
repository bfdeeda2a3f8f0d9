package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hongyue0721/image-fill-site/internal/http/handlers"
	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/metrics"
	"github.com/hongyue0721/image-fill-site/internal/middleware"
)

type Options struct {
	Metrics         *metrics.Collector
	Logger          infra.Logger
	PublicDir       string
	CORSOrigins     []string
	RateLimitPerMin int

	// TrustProxyHeaders mounts RealIP so forwarding headers replace the
	// connection address used by logging and rate limiting.
	TrustProxyHeaders bool
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
	)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/public-config", app.PublicConfig)
		r.Get("/images/current", app.CurrentImage)
		r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/generate", app.Generate)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", app.AdminLogin)
			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminAuth(app.AdminPassword()), middleware.NoCache)
				r.Get("/config", app.AdminConfig)
				r.Put("/config", app.AdminUpdateConfig)
				r.Get("/assets/original", app.AdminOriginal)
				r.Get("/assets/mask", app.AdminMask)
				r.Get("/assets/export", app.ExportAssets)
				r.Post("/upload-original", app.UploadOriginal)
				r.Post("/upload-mask", app.UploadMask)
				r.Post("/reset-latest", app.ResetLatest)
			})
		})
	})

	if opts.PublicDir != "" {
		mountStatic(r, opts.PublicDir)
	}
	return r
}

// mountStatic serves the site pages and their files from dir.
func mountStatic(r chi.Router, dir string) {
	page := func(name string) http.HandlerFunc {
		path := filepath.Join(dir, name)
		return func(w http.ResponseWriter, req *http.Request) {
			if _, err := os.Stat(path); err != nil {
				http.NotFound(w, req)
				return
			}
			http.ServeFile(w, req, path)
		}
	}
	r.Get("/", page("index.html"))
	r.Get("/admin", page("admin.html"))
	r.Handle("/*", http.FileServer(http.Dir(dir)))
}
