package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/legisearch/legisearch/internal/api"
	"github.com/legisearch/legisearch/internal/api/handlers"
	"github.com/legisearch/legisearch/internal/api/middleware"
)

type RouterConfig struct {
	APIKey          string
	DocumentHandler *handlers.DocumentHandler
	AskHandler      *handlers.AskHandler
	StatsHandler    *handlers.StatsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Generous body limit: PDF uploads of legal codes go through this route.
	const maxBodyBytes int64 = 50 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Post("/documents", cfg.DocumentHandler.Ingest)
		r.Post("/ask", cfg.AskHandler.Ask)
		r.Get("/stats", cfg.StatsHandler.Stats)
		r.Get("/history", cfg.StatsHandler.History)
	})

	return r
}
