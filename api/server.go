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
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/policy/*      Session policy (reforms, year cursor)
  /api/parameters/*  Parameter metadata and projected values
  /api/documentation Reform documentation rendering
  /api/reforms/*     Stored reform documents
  /api/unitsets/*    Stored filing-unit sets
  /api/runs/*        Scenario runs
  /api/reset         Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Session policy routes
		r.Route("/policy", func(r chi.Router) {
			r.Get("/", h.GetPolicyState)
			r.Post("/reforms", h.ApplyReform)
			r.Post("/year", h.SetYear)
			r.Post("/reset", h.ResetPolicy)
		})

		// Parameter routes
		r.Route("/parameters", func(r chi.Router) {
			r.Get("/", h.ListParameters)
			r.Get("/{name}", h.GetParameter)
			r.Get("/{name}/values", h.GetParameterValues)
		})

		// Documentation rendering
		r.Post("/documentation", h.RenderDocumentation)

		// Reform registry routes
		r.Route("/reforms", func(r chi.Router) {
			r.Get("/", h.ListReforms)
			r.Post("/", h.CreateReform)
			r.Get("/{id}", h.GetReform)
			r.Delete("/{id}", h.DeleteReform)
		})

		// Unit set routes
		r.Route("/unitsets", func(r chi.Router) {
			r.Get("/", h.ListUnitSets)
			r.Post("/", h.CreateUnitSet)
			r.Get("/{id}", h.GetUnitSet)
			r.Delete("/{id}", h.DeleteUnitSet)
		})

		// Scenario run routes
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Post("/", h.CreateRun)
			r.Get("/{id}", h.GetRun)
			r.Post("/{id}/execute", h.ExecuteRun)
		})

		// Dev reset
		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
