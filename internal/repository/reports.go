package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/common"
	"github.com/ghda/fieldreports/internal/entity"
)

const dateLayout = "2006-01-02"

// schemaDDL sticks to types both Postgres and SQLite accept. clinic_date is
// stored as YYYY-MM-DD text and the analysis document as a JSON string.
// Statements run one at a time; the pgx driver rejects multi-statement execs.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS reports (
	id              TEXT PRIMARY KEY,
	filename        TEXT NOT NULL,
	facility_name   TEXT NOT NULL DEFAULT '',
	district        TEXT NOT NULL DEFAULT '',
	clinic_date     TEXT,
	status          TEXT NOT NULL,
	overall_score   INTEGER NOT NULL DEFAULT 0,
	attendance_rate DOUBLE PRECISION,
	analysis        TEXT,
	error_message   TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_clinic_date ON reports (clinic_date)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports (status)`,
}

// ReportRepository stores and queries analysis reports.
type ReportRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewReportRepository(db *sql.DB, logger *slog.Logger) *ReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportRepository{db: db, logger: logger}
}

// EnsureSchema creates the reports table and indexes if missing.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Save inserts the report, or replaces it when the id already exists.
func (r *ReportRepository) Save(ctx context.Context, rep *entity.Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}

	var analysisJSON sql.NullString
	if rep.Analysis != nil {
		raw, err := json.Marshal(rep.Analysis)
		if err != nil {
			return fmt.Errorf("encoding analysis: %w", err)
		}
		analysisJSON = sql.NullString{String: string(raw), Valid: true}
	}

	const q = `
INSERT INTO reports (id, filename, facility_name, district, clinic_date, status,
	overall_score, attendance_rate, analysis, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	filename = EXCLUDED.filename,
	facility_name = EXCLUDED.facility_name,
	district = EXCLUDED.district,
	clinic_date = EXCLUDED.clinic_date,
	status = EXCLUDED.status,
	overall_score = EXCLUDED.overall_score,
	attendance_rate = EXCLUDED.attendance_rate,
	analysis = EXCLUDED.analysis,
	error_message = EXCLUDED.error_message`

	_, err := r.db.ExecContext(ctx, q,
		rep.ID.String(),
		rep.Filename,
		rep.FacilityName,
		rep.District,
		dateOut(rep.ClinicDate),
		string(rep.Status),
		rep.OverallScore,
		floatOut(rep.AttendanceRate),
		analysisJSON,
		rep.ErrorMessage,
		rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving report %s: %w", rep.ID, err)
	}
	r.logger.Info("db.report.saved", "id", rep.ID, "status", rep.Status)
	return nil
}

// UpdateStatus moves a report to a new status, optionally recording an error.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.AnalysisStatus, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET status = $1, error_message = $2 WHERE id = $3`,
		string(status), errMsg, id.String())
	if err != nil {
		return fmt.Errorf("updating report %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Get fetches one report by id.
func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` FROM reports WHERE id = $1`, id.String())
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading report %s: %w", id, err)
	}
	return rep, nil
}

// ListFilter narrows List results. Zero-value fields are ignored.
type ListFilter struct {
	From     *time.Time // inclusive clinic_date lower bound
	To       *time.Time // inclusive clinic_date upper bound
	District string
	Status   constants.AnalysisStatus
	Limit    int
}

// List returns reports matching the filter, newest first.
func (r *ReportRepository) List(ctx context.Context, f ListFilter) ([]*entity.Report, error) {
	q := selectColumns + ` FROM reports WHERE 1=1`
	var args []any
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if f.From != nil {
		q += ` AND clinic_date >= ` + arg(f.From.Format(dateLayout))
	}
	if f.To != nil {
		q += ` AND clinic_date <= ` + arg(f.To.Format(dateLayout))
	}
	if f.District != "" {
		q += ` AND district = ` + arg(f.District)
	}
	if f.Status != "" {
		q += ` AND status = ` + arg(string(f.Status))
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ` + arg(f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []*entity.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// SummaryStats aggregates stored reports for the analytics endpoint.
type SummaryStats struct {
	Total             int            `json:"total"`
	ByStatus          map[string]int `json:"by_status"`
	AvgOverallScore   *float64       `json:"avg_overall_score,omitempty"`
	AvgAttendanceRate *float64       `json:"avg_attendance_rate,omitempty"`
	ByDistrict        map[string]int `json:"by_district"`
}

// Summary computes aggregate statistics across all stored reports. Averages
// only cover successful analyses.
func (r *ReportRepository) Summary(ctx context.Context) (*SummaryStats, error) {
	stats := &SummaryStats{ByStatus: map[string]int{}, ByDistrict: map[string]int{}}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("summary by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT AVG(CAST(overall_score AS DOUBLE PRECISION)), AVG(attendance_rate)
		 FROM reports WHERE status = $1`, string(constants.StatusSuccess))
	var avgScore, avgRate sql.NullFloat64
	if err := row.Scan(&avgScore, &avgRate); err != nil {
		return nil, fmt.Errorf("summary averages: %w", err)
	}
	if avgScore.Valid {
		stats.AvgOverallScore = &avgScore.Float64
	}
	if avgRate.Valid {
		stats.AvgAttendanceRate = &avgRate.Float64
	}

	drows, err := r.db.QueryContext(ctx,
		`SELECT district, COUNT(*) FROM reports WHERE district <> '' GROUP BY district`)
	if err != nil {
		return nil, fmt.Errorf("summary by district: %w", err)
	}
	defer drows.Close()
	for drows.Next() {
		var district string
		var count int
		if err := drows.Scan(&district, &count); err != nil {
			return nil, err
		}
		stats.ByDistrict[district] = count
	}
	return stats, drows.Err()
}

const selectColumns = `SELECT id, filename, facility_name, district, clinic_date, status,
	overall_score, attendance_rate, analysis, error_message, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var (
		id, filename, facility, district, status, errMsg string
		clinicDate, analysisJSON                         sql.NullString
		attendanceRate                                   sql.NullFloat64
		overallScore                                     int
		createdAt                                        time.Time
	)
	err := row.Scan(&id, &filename, &facility, &district, &clinicDate, &status,
		&overallScore, &attendanceRate, &analysisJSON, &errMsg, &createdAt)
	if err != nil {
		return nil, err
	}

	rep := &entity.Report{
		Filename:     filename,
		FacilityName: facility,
		District:     district,
		Status:       constants.AnalysisStatus(status),
		OverallScore: overallScore,
		ErrorMessage: errMsg,
		CreatedAt:    createdAt,
	}
	rep.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing report id %q: %w", id, err)
	}
	if clinicDate.Valid && clinicDate.String != "" {
		t, err := time.Parse(dateLayout, clinicDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing clinic_date %q: %w", clinicDate.String, err)
		}
		rep.ClinicDate = &t
	}
	if attendanceRate.Valid {
		rep.AttendanceRate = &attendanceRate.Float64
	}
	if analysisJSON.Valid && analysisJSON.String != "" {
		var analysis entity.AnalysisResult
		if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
			return nil, fmt.Errorf("decoding analysis for %s: %w", id, err)
		}
		rep.Analysis = &analysis
	}
	return rep, nil
}

func dateOut(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func floatOut(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
