/*
server.go - HTTP router and middleware configuration

ROUTER: chi

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy
  3. Logger:     Structured request logging (charmbracelet/log)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for a frontend

ROUTE GROUPS:
  /api/v1/settlements/*  Remittance generation and work-log listing
  /api/v1/users/*        User directory maintenance
  /api/v1/worklogs/*     Work-log, segment and adjustment maintenance
  /api/v1/remittances/*  Remittance inspection and deletion
  /api/v1/scenarios/*    Demo data (development only)
  /healthz               Liveness
*/
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if h.Logger != nil {
		r.Use(requestLogger(h.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/settlements", func(r chi.Router) {
			r.Post("/generate-remittances-for-all-users", h.GenerateRemittances)
			r.Get("/list-all-worklogs", h.ListAllWorkLogs)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Delete("/{id}", h.DeleteUser)
		})

		r.Route("/worklogs", func(r chi.Router) {
			r.Post("/", h.CreateWorkLog)
			r.Get("/{id}", h.GetWorkLog)
			r.Delete("/{id}", h.DeleteWorkLog)
			r.Post("/{id}/segments", h.AddTimeSegment)
			r.Post("/{id}/adjustments", h.AddAdjustment)
		})

		r.Route("/remittances", func(r chi.Router) {
			r.Get("/", h.ListRemittances)
			r.Get("/{id}", h.GetRemittance)
			r.Delete("/{id}", h.DeleteRemittance)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
