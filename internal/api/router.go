package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// timeout bounds each folder operation; zero disables the bound.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(exec Executor, timeout time.Duration, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(exec)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Group(func(r chi.Router) {
		r.Use(TimeoutMiddleware(timeout))
		r.Post("/folders", h.Execute)
		r.Get("/folders", h.ListFolders)
		r.Get("/folders/*", h.ListFolders)
	})

	// SSE endpoint (protected by same auth middleware, not bounded by the
	// operation timeout).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
