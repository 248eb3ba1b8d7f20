package server

import (
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/nl2sparql/internal/api"
	"github.com/cloo-solutions/nl2sparql/internal/api/handlers"
	"github.com/cloo-solutions/nl2sparql/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const defaultMaxBodyBytes int64 = 64 * 1024

type RouterConfig struct {
	AskHandler *handlers.AskHandler
	// TokenValidator guards the question routes. Nil leaves them open.
	TokenValidator middleware.TokenValidator
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if cfg.TokenValidator != nil {
			r.Use(middleware.TokenAuth(cfg.TokenValidator))
		}

		r.Use(middleware.RequireJSON)

		r.Post("/ask", cfg.AskHandler.Ask)
		r.Post("/generate", cfg.AskHandler.Generate)
	})

	return r
}
