package http

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FitProvider exposes the rows of the last completed fit.
type FitProvider interface {
	sharedobs.ReadinessChecker
	FitRows() []domain.FitRow
}

// Server exposes health, readiness, metrics and fit result HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /v1/fits routes.
func NewServer(addr string, fits FitProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(fits))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/fits", handleFits(fits))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type fitsResponse struct {
	Count int             `json:"count"`
	Rows  []domain.FitRow `json:"rows"`
}

// handleFits returns the rows of the last fit, optionally restricted to one
// resolving radius with ?radius=.
func handleFits(fits FitProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fits.CheckReadiness(r.Context()); err != nil {
			sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}

		rows := fits.FitRows()
		if q := r.URL.Query().Get("radius"); q != "" {
			radius, err := parseRadius(q)
			if err != nil {
				sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			filtered := make([]domain.FitRow, 0, len(rows))
			for _, row := range rows {
				if row.Radius == radius {
					filtered = append(filtered, row)
				}
			}
			rows = filtered
		}
		if rows == nil {
			rows = []domain.FitRow{}
		}
		sharedobs.WriteJSON(w, http.StatusOK, fitsResponse{Count: len(rows), Rows: rows})
	}
}

func parseRadius(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid radius %q", s)
	}
	return v, nil
}
