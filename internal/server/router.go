package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chroniclehq/chronicle/internal/api"
	"github.com/chroniclehq/chronicle/internal/api/handlers"
	"github.com/chroniclehq/chronicle/internal/api/middleware"
)

type RouterConfig struct {
	QueryHandler    *handlers.QueryHandler
	SourceHandler   *handlers.SourceHandler
	TimelineHandler *handlers.TimelineHandler
	SessionHandler  *handlers.SessionHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.UserID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/query", cfg.QueryHandler.Ask)

	r.Route("/sources", func(r chi.Router) {
		r.Get("/", cfg.SourceHandler.List)
		r.Get("/{id}/download", cfg.SourceHandler.Download)
	})

	r.Get("/timeline", cfg.TimelineHandler.List)

	r.Get("/sessions/interactions", cfg.SessionHandler.Interactions)

	return r
}
