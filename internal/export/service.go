package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ghda/fieldreports/internal/entity"
	"github.com/ghda/fieldreports/internal/repository"
)

// Service is a tiny façade over the report repository that produces XLSX
// bytes for exports.
type Service struct {
	reports *repository.ReportRepository
	logger  *slog.Logger
}

func NewService(reports *repository.ReportRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reports: reports, logger: logger}
}

// ExportReportsXLSX returns an XLSX workbook (as bytes) for the given clinic
// date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all reports.
func (s *Service) ExportReportsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	reps, err := s.reports.List(ctx, repository.ListFilter{From: fromDate, To: toDate})
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Reports"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Clinic Date",
		"Facility",
		"Facility Type",
		"District",
		"Status",
		"Overall Score",
		"Attendance Rate",
		"Critical Issues",
		"Top Recommendation",
		"Source File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rep := range reps {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if rep.ClinicDate != nil {
			write(1, rep.ClinicDate.Format("2006-01-02"))
		} else {
			write(1, "")
		}
		write(2, rep.FacilityName)
		write(3, facilityType(rep))
		write(4, rep.District)
		write(5, string(rep.Status))
		write(6, rep.OverallScore)
		if rep.AttendanceRate != nil {
			write(7, fmt.Sprintf("%.1f%%", *rep.AttendanceRate*100))
		} else {
			write(7, "")
		}
		write(8, criticalIssues(rep))
		write(9, topRecommendation(rep))
		write(10, rep.Filename)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // facility
	_ = f.SetColWidth(sheet, "C", "D", 18) // type, district
	_ = f.SetColWidth(sheet, "E", "G", 14) // status, score, rate
	_ = f.SetColWidth(sheet, "H", "I", 48) // issues, recommendation
	_ = f.SetColWidth(sheet, "J", "J", 36) // file

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(reps),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func facilityType(rep *entity.Report) string {
	if rep.Analysis == nil {
		return ""
	}
	return rep.Analysis.Facility.Type
}

func criticalIssues(rep *entity.Report) string {
	if rep.Analysis == nil {
		return ""
	}
	return truncate(strings.Join(rep.Analysis.CriticalIssues, "; "), 200)
}

func topRecommendation(rep *entity.Report) string {
	if rep.Analysis == nil || len(rep.Analysis.Recommendations) == 0 {
		return ""
	}
	return truncate(rep.Analysis.Recommendations[0].Action, 200)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
