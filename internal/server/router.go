package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sailor-labs/sailor/internal/api"
	"github.com/sailor-labs/sailor/internal/api/handlers"
	"github.com/sailor-labs/sailor/internal/api/middleware"
)

// HealthChecker reports whether an upstream collaborator is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
	MaxBodyBytes    int64
	// Backends are probed by the health endpoint, keyed by display name.
	Backends map[string]HealthChecker
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 50 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.UserID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if len(cfg.Backends) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			for name, backend := range cfg.Backends {
				if err := backend.Health(ctx); err != nil {
					status[name] = "unavailable"
				} else {
					status[name] = "ok"
				}
			}
		}
		api.Success(w, http.StatusOK, status)
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/upload", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
	})

	r.Post("/query", cfg.ChatHandler.Query)
	r.Post("/ask", cfg.ChatHandler.Ask)

	return r
}
