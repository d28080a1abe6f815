package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-ai/parley/internal/api"
	"github.com/parley-ai/parley/internal/api/handlers"
	"github.com/parley-ai/parley/internal/api/middleware"
)

type RouterConfig struct {
	ChatHandler      *handlers.ChatHandler
	KnowledgeHandler *handlers.KnowledgeHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/chat", cfg.ChatHandler.Chat)

	r.Route("/knowledge", func(r chi.Router) {
		r.Post("/", cfg.KnowledgeHandler.Add)
		r.Get("/", cfg.KnowledgeHandler.List)
		r.Get("/count", cfg.KnowledgeHandler.Count)
		r.Post("/search", cfg.KnowledgeHandler.Search)
		r.Post("/import", cfg.KnowledgeHandler.Import)
		r.Delete("/", cfg.KnowledgeHandler.Clear)
		r.Delete("/{id}", cfg.KnowledgeHandler.Delete)
	})

	return r
}
