// Package service coordinates the analysis pipeline with report storage.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/entity"
	"github.com/ghda/fieldreports/internal/pipeline"
	"github.com/ghda/fieldreports/internal/repository"
)

// AnalysisService runs the pipeline for one uploaded document and records the
// result. Every run ends in a stored row: SUCCESS, DEGENERATE, or FAILED.
type AnalysisService struct {
	analyzer *pipeline.Analyzer
	reports  *repository.ReportRepository
	logger   *slog.Logger
}

func NewAnalysisService(analyzer *pipeline.Analyzer, reports *repository.ReportRepository, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{analyzer: analyzer, reports: reports, logger: logger}
}

// Enqueue records a QUEUED report row for a document awaiting async analysis.
func (s *AnalysisService) Enqueue(ctx context.Context, id uuid.UUID, filename string) (*entity.Report, error) {
	rep := &entity.Report{
		ID:        id,
		Filename:  filename,
		Status:    constants.StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reports.Save(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// AnalyzeAndStore runs the full pipeline on the document at path and persists
// the outcome under the given report id. Pipeline failures are recorded as a
// FAILED row and returned as an error.
func (s *AnalysisService) AnalyzeAndStore(ctx context.Context, id uuid.UUID, path, filename string) (*entity.Report, error) {
	rep := &entity.Report{
		ID:        id,
		Filename:  filename,
		Status:    constants.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reports.Save(ctx, rep); err != nil {
		return nil, err
	}

	out, err := s.analyzer.AnalyzeFile(ctx, path)
	if err != nil {
		rep.Status = constants.StatusFailed
		rep.ErrorMessage = err.Error()
		if saveErr := s.reports.Save(ctx, rep); saveErr != nil {
			s.logger.Error("analysis.save_failed_row", "id", id, "error", saveErr)
		}
		return rep, err
	}

	rep.Status = out.Status
	rep.Analysis = out.Result
	rep.FacilityName = out.Result.Facility.Name
	rep.District = out.Result.Facility.District
	rep.OverallScore = out.Result.OverallScore
	rep.AttendanceRate = out.Result.Beneficiaries.AttendanceRate
	if out.Result.ClinicDate != nil {
		if t, perr := time.Parse("2006-01-02", *out.Result.ClinicDate); perr == nil {
			rep.ClinicDate = &t
		}
	}
	if err := s.reports.Save(ctx, rep); err != nil {
		return rep, err
	}
	return rep, nil
}
