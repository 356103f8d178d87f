package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/database"
	mw "github.com/JuJa1021101/Vue3-notebook-AI/internal/middleware"
	inats "github.com/JuJa1021101/Vue3-notebook-AI/internal/nats"
	iredis "github.com/JuJa1021101/Vue3-notebook-AI/internal/redis"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// AI assist handlers
	ProcessAI      http.HandlerFunc
	GetAISettings  http.HandlerFunc
	UpdateSettings http.HandlerFunc
	AIStats        http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AIRateLimiter      func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, rdb goredis.Cmdable, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(mw.CORS(cfg.CORSAllowedOrigins))

	// Liveness probe, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe: database and redis are required, nats is optional
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if pool == nil || database.HealthCheck(r.Context(), pool) != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if rdb == nil || iredis.HealthCheck(r.Context(), rdb) != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient == nil {
			health["nats"] = "not configured"
		} else if !natsClient.Healthy() {
			// Usage events are best effort; report but stay ready.
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Route("/ai", func(r chi.Router) {
				r.Get("/settings", h.GetAISettings)
				r.Put("/settings", h.UpdateSettings)
				r.Get("/stats", h.AIStats)

				r.Group(func(r chi.Router) {
					if cfg.AIRateLimiter != nil {
						r.Use(cfg.AIRateLimiter)
					}
					r.Post("/{action}", h.ProcessAI)
				})
			})
		})
	})

	return r
}
