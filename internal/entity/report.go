package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghda/fieldreports/constants"
)

// Report is a stored analysis run for data transfer between layers.
type Report struct {
	ID             uuid.UUID                `json:"id"`
	Filename       string                   `json:"filename"`
	FacilityName   string                   `json:"facility_name"`
	District       string                   `json:"district"`
	ClinicDate     *time.Time               `json:"clinic_date,omitempty"`
	Status         constants.AnalysisStatus `json:"status"`
	OverallScore   int                      `json:"overall_score"`
	AttendanceRate *float64                 `json:"attendance_rate,omitempty"`
	Analysis       *AnalysisResult          `json:"analysis,omitempty"`
	ErrorMessage   string                   `json:"error_message,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}
