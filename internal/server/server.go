// Package server exposes the REST API for uploading field reports and
// querying analysis results.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ghda/fieldreports/internal/async"
	"github.com/ghda/fieldreports/internal/common"
	"github.com/ghda/fieldreports/internal/export"
	"github.com/ghda/fieldreports/internal/repository"
	"github.com/ghda/fieldreports/internal/service"
)

type Server struct {
	svc       *service.AnalysisService
	reports   *repository.ReportRepository
	exports   *export.Service
	queue     async.Queue
	uploadDir string
	logger    *slog.Logger
}

func New(svc *service.AnalysisService, reports *repository.ReportRepository, exports *export.Service, queue async.Queue, uploadDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		svc:       svc,
		reports:   reports,
		exports:   exports,
		queue:     queue,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleUploadDocument)
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Get("/reports/{id}/artifact", s.handleReportArtifact)
		r.Get("/analytics/summary", s.handleSummary)
		r.Get("/exports/reports.xlsx", s.handleExportXLSX)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("http.encode_error", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, async.ErrQueueClosed):
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
