package constants

// AnalysisStatus is the canonical status for rows in reports.
type AnalysisStatus string

// Stable values (store these exact strings in DB).
const (
	StatusQueued     AnalysisStatus = "QUEUED"     // waiting in the processing queue
	StatusRunning    AnalysisStatus = "RUNNING"    // pipeline in progress
	StatusSuccess    AnalysisStatus = "SUCCESS"    // model output parsed and normalized
	StatusDegenerate AnalysisStatus = "DEGENERATE" // model output unusable; defaulted result stored
	StatusFailed     AnalysisStatus = "FAILED"     // terminal failure (extraction or model call)
)
