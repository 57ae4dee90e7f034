package entity

// AnalysisResult is the canonical structured representation of one field
// report. It is constructed once per analysis run by the normalizer, handed
// to the renderer, and never mutated afterwards. Every field is present even
// when the model said nothing useful: absent data shows up as null pointers,
// "Unknown" strings, or empty collections, never as a missing key.
type AnalysisResult struct {
	Facility            Facility            `json:"facility"`
	ClinicDate          *string             `json:"clinic_date"` // YYYY-MM-DD
	Beneficiaries       Beneficiaries       `json:"beneficiaries"`
	ASHAPerformance     ASHAPerformance     `json:"asha_performance"`
	ClinicalServices    ClinicalServices    `json:"clinical_services"`
	Laboratory          Laboratory          `json:"laboratory"`
	InfrastructureGaps  []InfrastructureGap `json:"infrastructure_gaps"`
	Compliance          Compliance          `json:"compliance"`
	Risks               []Risk              `json:"risks"`
	Recommendations     []Recommendation    `json:"recommendations"`
	ExecutiveSummary    string              `json:"executive_summary"`
	KeyFindings         []string            `json:"key_findings"`
	CriticalIssues      []string            `json:"critical_issues"`
	OverallScore        int                 `json:"overall_score"`
	LowConfidenceFields []string            `json:"low_confidence_fields"`
}

type Facility struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Block    string `json:"block"`
	District string `json:"district"`
	State    string `json:"state"`
}

type Beneficiaries struct {
	Expected       *int      `json:"expected"`
	Attended       *int      `json:"attended"`
	AttendanceRate *float64  `json:"attendance_rate"`
	Barriers       []Barrier `json:"barriers"`
}

// Barrier is a discrete identified issue affecting beneficiary attendance.
type Barrier struct {
	Reason       string `json:"reason"`
	Count        int    `json:"count"`
	Severity     string `json:"severity"`
	RootCause    string `json:"root_cause"`
	Intervention string `json:"intervention"`
}

type ASHAPerformance struct {
	Name       string   `json:"name"`
	HomeVisits *int     `json:"home_visits"`
	Issues     []string `json:"issues"`
	Rating     string   `json:"rating"`
}

type ClinicalServices struct {
	StaffPresent      []string `json:"staff_present"`
	ExaminationDone   *bool    `json:"examination_done"`
	CounsellingTopics []string `json:"counselling_topics"`
	CounsellingGaps   []string `json:"counselling_gaps"`
	Quality           string   `json:"quality"`
}

type Laboratory struct {
	TestsDone           []string `json:"tests_done"`
	SampleStorage       string   `json:"sample_storage"`
	ColdChainMaintained *bool    `json:"cold_chain_maintained"`
	Violations          []string `json:"violations"`
	TurnaroundDays      *float64 `json:"turnaround_days"`
}

type InfrastructureGap struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Impact      string `json:"impact"`
}

type Compliance struct {
	DueListPrepared    *bool    `json:"due_list_prepared"`
	RegistersUpdated   *bool    `json:"registers_updated"`
	ProtocolDeviations []string `json:"protocol_deviations"`
	Score              int      `json:"score"`
}

type Risk struct {
	Risk         string `json:"risk"`
	Level        string `json:"level"`
	ActionNeeded string `json:"action_needed"`
	Timeline     string `json:"timeline"`
}

// Recommendation is a prioritized action; 1 is the highest priority.
type Recommendation struct {
	Priority    int    `json:"priority"`
	Action      string `json:"action"`
	Responsible string `json:"responsible"`
	Impact      string `json:"impact"`
}
