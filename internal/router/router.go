// Package router wires the HTTP routes of the grantbot service and applies
// the middleware chain.
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections/handler"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/middleware"
)

// Config collects the handlers and limits the router needs. Analytics,
// Limiter and Metrics may be nil.
type Config struct {
	Sections       *handler.Handler
	Analytics      *analytics.Handler
	Health         *health.Checker
	Metrics        *metrics.Metrics
	Limiter        middleware.Allower
	RatePerMinute  int
	RequestTimeout time.Duration
}

// New builds the service handler.
//
// Route table:
//
//	GET    /                      → service banner
//	POST   /generate-section      → generate a section
//	GET    /history/{company_id}  → generation history for a company
//	GET    /api/v1/analytics      → aggregated generation stats
//	GET    /health/live           → liveness
//	GET    /health/ready          → readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → RateLimit → Metrics → Timeout → mux
func New(cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", cfg.Sections.Root)
	mux.HandleFunc("POST /generate-section", cfg.Sections.Generate)
	mux.HandleFunc("GET /history/{company_id}", cfg.Sections.History)

	if cfg.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", cfg.Analytics.Stats)
	}

	mux.HandleFunc("GET /health/live", cfg.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", cfg.Health.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.RequestTimeout)(chain)
	if cfg.Metrics != nil {
		chain = middleware.Metrics(cfg.Metrics)(chain)
	}
	if cfg.Limiter != nil {
		chain = middleware.RateLimit(cfg.Limiter, cfg.RatePerMinute, 60)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	return chain
}
