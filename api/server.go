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
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP behind proxies
  3. logrus:     Structured request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for frontend

SECURITY NOTE:
  No authentication middleware currently. Identity comes from the
  X-User-ID header and is expected to be verified upstream.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Planning routes
		r.Route("/plannings", func(r chi.Router) {
			r.Get("/", h.ListPlannings)
			r.Post("/", h.CreatePlanning)
			r.Post("/generate", h.GeneratePlanning)
			r.Get("/{id}", h.GetPlanning)
			r.Get("/{id}/conflits", h.GetConflicts)
			r.Get("/{id}/equite", h.GetEquity)

			r.Post("/{id}/soumettre", h.SubmitPlanning)
			r.Post("/{id}/approuver", h.ApprovePlanning)
			r.Post("/{id}/rejeter", h.RejectPlanning)
			r.Post("/{id}/publier", h.PublishPlanning)
			r.Post("/{id}/reediter", h.ReeditPlanning)
			r.Post("/{id}/resoudre-conflits", h.ResolveConflicts)

			r.Post("/{id}/gardes", h.AddGarde)
			r.Delete("/{id}/gardes/{gardeId}", h.DeleteGarde)
			r.Post("/{id}/gardes/{gardeId}/remplacer", h.ReplaceGarde)
			r.Post("/{id}/gardes/{gardeId}/confirmer", h.ConfirmGarde)
			r.Post("/{id}/gardes/{gardeId}/absent", h.MarkGardeAbsent)
		})

		// Unavailability routes
		r.Route("/indisponibilites", func(r chi.Router) {
			r.Get("/", h.ListIndispos)
			r.Post("/", h.CreateIndispo)
			r.Get("/{id}", h.GetIndispo)
			r.Put("/{id}", h.UpdateIndispo)
			r.Post("/{id}/approuver", h.ApproveIndispo)
			r.Post("/{id}/refuser", h.RefuseIndispo)
			r.Post("/{id}/annuler", h.CancelIndispo)
		})

		// Holiday routes
		r.Route("/jours-feries", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		// Demo scenarios (development only, require a seed store)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// requestLogger logs each request through logrus with method, path,
// status and latency.
func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
