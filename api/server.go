/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, reused as the audit correlation id
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the HR frontend

ROUTE GROUPS:
  /api/attendance/*   Attendance writes and reads
  /api/leave-sync/*   Trusted leave-workflow integration
  /api/health         Liveness probe

SECURITY NOTE:
  Actor identity arrives pre-resolved in X-Actor-Id / X-Actor-Permissions
  headers from the auth gateway. The leave-sync routes must additionally
  be network-restricted to internal callers.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Actor-Id", "X-Actor-Permissions"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", h.ByMonth)
			r.Get("/summary", h.Summary)
			r.Get("/records/{id}/audit", h.RecordAudit)
			r.Post("/mark", h.Mark)
			r.Post("/override", h.Override)
			r.Post("/bulk", h.BulkMark)
		})

		r.Route("/leave-sync", func(r chi.Router) {
			r.Post("/apply", h.SyncApply)
			r.Post("/revert", h.SyncRevert)
		})
	})

	return r
}
