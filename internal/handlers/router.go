package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/shortener"
)

type RouterConfig struct {
	CreateRPS   float64
	CreateBurst int
}

// NewRouter mounts the JSON API, health check and redirect routes.
func NewRouter(svc *shortener.Service, storage StorageStatus, cfg RouterConfig, logger *zap.Logger) http.Handler {
	links := &LinkHandler{Svc: svc, Logger: logger}
	redirect := &RedirectHandler{Svc: svc, Logger: logger}
	health := &HealthHandler{Storage: storage}
	limiter := NewRateLimiter(cfg.CreateRPS, cfg.CreateBurst, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/links/{code}/stats", links.Stats)
		r.Get("/links/{code}/qr", links.QRCode)

		r.Group(func(r chi.Router) {
			r.Use(OwnerMiddleware)
			r.With(limiter.Middleware).Post("/links", links.Create)
			r.Get("/links", links.List)
			r.Delete("/links/{code}", links.Delete)
			r.Get("/dashboard", links.Dashboard)
		})
	})

	r.Get("/{code}", redirect.ServeHTTP)
	r.Post("/{code}", redirect.ServeHTTP)

	return r
}
