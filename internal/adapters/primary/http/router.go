package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/ticket-monitor/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-monitor/internal/auth"
)

// RouterConfig collects the handlers and middleware the router mounts.
// Nil optional fields switch the corresponding feature off.
type RouterConfig struct {
	Monitor   *MonitorHandler
	Health    *HealthHandler
	WebSocket http.Handler

	// TokenManager guards /start and /stop when set
	TokenManager *auth.TokenManager

	GeneralLimiter *mw.RateLimiter
	ControlLimiter *mw.RateLimiter

	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the control API router
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.GeneralLimiter != nil {
		r.Use(cfg.GeneralLimiter.Middleware)
	}

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}

	if cfg.WebSocket != nil {
		r.Get("/ws", cfg.WebSocket.ServeHTTP)
	}

	cfg.Monitor.RegisterStatusRoute(r)

	// Lifecycle routes with stricter rate limiting and optional auth
	r.Group(func(r chi.Router) {
		if cfg.ControlLimiter != nil {
			r.Use(cfg.ControlLimiter.Middleware)
		}
		if cfg.TokenManager != nil {
			r.Use(mw.JWTMiddleware(cfg.TokenManager))
		}
		cfg.Monitor.RegisterControlRoutes(r)
	})

	return r
}
