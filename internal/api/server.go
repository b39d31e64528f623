package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/ess007/beathealth-outreach/internal/api/handler"
	"github.com/ess007/beathealth-outreach/internal/config"
	"github.com/ess007/beathealth-outreach/internal/db"
	"github.com/ess007/beathealth-outreach/internal/delivery"
	"github.com/ess007/beathealth-outreach/internal/outreach"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *db.Pool, runner *outreach.Runner, publisher *delivery.Publisher, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// --- Handler dependencies ---
	h := handler.New(pool, runner, publisher, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/delivery", h.HealthCheckDelivery)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes — trigger surface, service credential only. The rate
	// limiter sits after auth so it buckets per verified caller subject.
	r.Route("/api/v1/outreach", func(r chi.Router) {
		r.Use(ServiceAuthMiddleware(cfg.AuthSecret, cfg.AuthIssuer))
		if cfg.RateLimitEnabled {
			r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Post("/run", h.RunOutreach)
		r.Get("/preview/{userID}", h.PreviewOutreach)
	})

	return r
}
