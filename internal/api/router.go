// Package api serves a read-only HTTP view of stored cafés and sync runs.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/cafe-sync/internal/model"
	"github.com/sells-group/cafe-sync/internal/monitoring"
	"github.com/sells-group/cafe-sync/internal/store"
)

// Reader is the read side of the store used by the API.
type Reader interface {
	GetCafe(ctx context.Context, osmID int64) (*model.Cafe, error)
	ListCafes(ctx context.Context, filter store.CafeFilter) ([]model.Cafe, error)
	CountCafes(ctx context.Context) (int, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// StatusSource reports sync health for the status endpoint.
type StatusSource interface {
	Status(ctx context.Context) (*monitoring.Status, error)
}

// Handler serves the API endpoints.
type Handler struct {
	reader   Reader
	pipeline string
	status   StatusSource
}

// NewHandler creates a Handler. pipeline scopes the runs endpoint.
func NewHandler(r Reader, pipeline string) *Handler {
	return &Handler{reader: r, pipeline: pipeline}
}

// WithStatus enables the status endpoint.
func (h *Handler) WithStatus(s StatusSource) *Handler {
	h.status = s
	return h
}

// NewRouter builds the chi router with request ids, panic recovery and CORS.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/cafes", h.ListCafes)
		r.Get("/cafes/{osmID}", h.GetCafe)
		r.Get("/runs", h.ListRuns)
		r.Get("/status", h.Status)
	})

	return r
}
