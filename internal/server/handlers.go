package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/async"
	"github.com/ghda/fieldreports/internal/common"
	"github.com/ghda/fieldreports/internal/render"
	"github.com/ghda/fieldreports/internal/repository"
)

const maxUploadBytes = 32 << 20 // 32 MiB

// handleUploadDocument accepts a multipart field report upload. Synchronous
// by default; pass ?async=1 to queue the analysis and get a QUEUED row back.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, fmt.Errorf("%w: parsing multipart form: %v", common.ErrInvalidInput, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: missing \"file\" part", common.ErrInvalidInput))
		return
	}
	defer file.Close()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		s.writeError(w, fmt.Errorf("%w: unsupported file extension %q", common.ErrInvalidInput, ext))
		return
	}

	id := uuid.New()
	path, err := s.saveUpload(file, id, ext)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("async") == "1" {
		rep, err := s.svc.Enqueue(r.Context(), id, header.Filename)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.queue.Enqueue(r.Context(), async.Job{
			ReportID:    id,
			Path:        path,
			Filename:    header.Filename,
			SubmittedAt: time.Now().UTC(),
		}); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, rep)
		return
	}

	rep, err := s.svc.AnalyzeAndStore(r.Context(), id, path, header.Filename)
	if err != nil {
		// The FAILED row is stored; surface it with the error message.
		s.logger.Error("http.analyze_failed", "id", id, "error", err)
		s.writeJSON(w, http.StatusUnprocessableEntity, rep)
		return
	}
	s.writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) saveUpload(src io.Reader, id uuid.UUID, ext string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, id.String()+"."+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: id must be a UUID", common.ErrInvalidInput))
		return
	}
	rep, err := s.reports.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

// handleReportArtifact renders a stored analysis on demand:
// GET /api/v1/reports/{id}/artifact?format=markdown|pdf|json
func (s *Server) handleReportArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: id must be a UUID", common.ErrInvalidInput))
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	rep, err := s.reports.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rep.Analysis == nil {
		s.writeError(w, fmt.Errorf("%w: report %s has no analysis", common.ErrNotFound, id))
		return
	}
	data, err := render.Render(rep.Analysis, format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	switch format {
	case render.FormatPDF:
		w.Header().Set("Content-Type", "application/pdf")
	case render.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "report-"+id.String()+format.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	filter := repository.ListFilter{Limit: 100}
	q := r.URL.Query()

	from, to, err := parseDateWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	filter.From, filter.To = from, to
	filter.District = q.Get("district")
	if v := q.Get("status"); v != "" {
		filter.Status = constants.AnalysisStatus(v)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			s.writeError(w, fmt.Errorf("%w: limit must be a positive integer", common.ErrInvalidInput))
			return
		}
		filter.Limit = limit
	}

	reps, err := s.reports.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reports": reps, "count": len(reps)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.Summary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseDateWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	data, err := s.exports.ExportReportsXLSX(r.Context(), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reports.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseDateWindow(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return nil, nil, fmt.Errorf("from must be YYYY-MM-DD")
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return nil, nil, fmt.Errorf("to must be YYYY-MM-DD")
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("to must not precede from")
	}
	return from, to, nil
}
