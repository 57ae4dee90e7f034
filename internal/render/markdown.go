package render

import (
	"fmt"
	"strings"

	"github.com/ghda/fieldreports/internal/entity"
)

const notSpecified = "Not specified"

// renderMarkdown produces the human-readable report. Section order is fixed
// so reviewers can scan reports from different facilities side by side.
func renderMarkdown(res *entity.AnalysisResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Field Report Analysis: %s\n\n", orUnknown(res.Facility.Name))
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Facility Type | %s |\n", orUnknown(res.Facility.Type))
	fmt.Fprintf(&b, "| Block | %s |\n", orUnknown(res.Facility.Block))
	fmt.Fprintf(&b, "| District | %s |\n", orUnknown(res.Facility.District))
	fmt.Fprintf(&b, "| State | %s |\n", orUnknown(res.Facility.State))
	fmt.Fprintf(&b, "| Clinic Date | %s |\n", strOrNotSpecified(res.ClinicDate))
	fmt.Fprintf(&b, "| Overall Score | %d/100 |\n\n", res.OverallScore)

	b.WriteString("## Executive Summary\n\n")
	if res.ExecutiveSummary != "" {
		b.WriteString(res.ExecutiveSummary + "\n\n")
	} else {
		b.WriteString(notSpecified + "\n\n")
	}

	writeBulletSection(&b, "Key Findings", res.KeyFindings)
	writeBulletSection(&b, "Critical Issues", res.CriticalIssues)

	b.WriteString("## Beneficiary Attendance\n\n")
	fmt.Fprintf(&b, "- Expected: %s\n", intOrNotSpecified(res.Beneficiaries.Expected))
	fmt.Fprintf(&b, "- Attended: %s\n", intOrNotSpecified(res.Beneficiaries.Attended))
	fmt.Fprintf(&b, "- Attendance rate: %s\n\n", pctOrNotSpecified(res.Beneficiaries.AttendanceRate))
	if len(res.Beneficiaries.Barriers) > 0 {
		b.WriteString("| Barrier | Count | Severity | Root Cause | Intervention |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, barrier := range res.Beneficiaries.Barriers {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n",
				mdCell(barrier.Reason), barrier.Count, barrier.Severity,
				mdCell(barrier.RootCause), mdCell(barrier.Intervention))
		}
		b.WriteString("\n")
	}

	b.WriteString("## ASHA Performance\n\n")
	fmt.Fprintf(&b, "- Name: %s\n", orUnknown(res.ASHAPerformance.Name))
	fmt.Fprintf(&b, "- Home visits: %s\n", intOrNotSpecified(res.ASHAPerformance.HomeVisits))
	fmt.Fprintf(&b, "- Rating: %s\n", res.ASHAPerformance.Rating)
	writeInlineList(&b, "Issues", res.ASHAPerformance.Issues)
	b.WriteString("\n")

	b.WriteString("## Clinical Services\n\n")
	writeInlineList(&b, "Staff present", res.ClinicalServices.StaffPresent)
	fmt.Fprintf(&b, "- Examination done: %s\n", boolOrNotSpecified(res.ClinicalServices.ExaminationDone))
	writeInlineList(&b, "Counselling topics", res.ClinicalServices.CounsellingTopics)
	writeInlineList(&b, "Counselling gaps", res.ClinicalServices.CounsellingGaps)
	fmt.Fprintf(&b, "- Quality: %s\n\n", res.ClinicalServices.Quality)

	b.WriteString("## Laboratory\n\n")
	writeInlineList(&b, "Tests done", res.Laboratory.TestsDone)
	fmt.Fprintf(&b, "- Sample storage: %s\n", res.Laboratory.SampleStorage)
	fmt.Fprintf(&b, "- Cold chain maintained: %s\n", boolOrNotSpecified(res.Laboratory.ColdChainMaintained))
	writeInlineList(&b, "Violations", res.Laboratory.Violations)
	fmt.Fprintf(&b, "- Turnaround days: %s\n\n", floatOrNotSpecified(res.Laboratory.TurnaroundDays))

	b.WriteString("## Infrastructure Gaps\n\n")
	if len(res.InfrastructureGaps) == 0 {
		b.WriteString("None reported.\n\n")
	} else {
		b.WriteString("| Type | Description | Severity | Impact |\n|---|---|---|---|\n")
		for _, gap := range res.InfrastructureGaps {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				mdCell(gap.Type), mdCell(gap.Description), gap.Severity, mdCell(gap.Impact))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Compliance\n\n")
	fmt.Fprintf(&b, "- Due list prepared: %s\n", boolOrNotSpecified(res.Compliance.DueListPrepared))
	fmt.Fprintf(&b, "- Registers updated: %s\n", boolOrNotSpecified(res.Compliance.RegistersUpdated))
	writeInlineList(&b, "Protocol deviations", res.Compliance.ProtocolDeviations)
	fmt.Fprintf(&b, "- Compliance score: %d/100\n\n", res.Compliance.Score)

	b.WriteString("## Risks\n\n")
	if len(res.Risks) == 0 {
		b.WriteString("None identified.\n\n")
	} else {
		b.WriteString("| Risk | Level | Action Needed | Timeline |\n|---|---|---|---|\n")
		for _, risk := range res.Risks {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				mdCell(risk.Risk), risk.Level, mdCell(risk.ActionNeeded), mdCell(risk.Timeline))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommendations\n\n")
	if len(res.Recommendations) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, rec := range res.Recommendations {
			fmt.Fprintf(&b, "%d. **%s**", rec.Priority, rec.Action)
			if rec.Responsible != "" {
				fmt.Fprintf(&b, " (responsible: %s)", rec.Responsible)
			}
			if rec.Impact != "" {
				fmt.Fprintf(&b, " - %s", rec.Impact)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(res.LowConfidenceFields) > 0 {
		b.WriteString("## Low Confidence Fields\n\n")
		b.WriteString("Values below did not match the expected vocabulary and should be verified manually:\n\n")
		for _, f := range res.LowConfidenceFields {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}

func writeBulletSection(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(items) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func writeInlineList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "- %s: none reported\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(items, ", "))
}

// mdCell keeps free text from breaking table rows.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func strOrNotSpecified(v *string) string {
	if v == nil || *v == "" {
		return notSpecified
	}
	return *v
}

func intOrNotSpecified(v *int) string {
	if v == nil {
		return notSpecified
	}
	return fmt.Sprintf("%d", *v)
}

func floatOrNotSpecified(v *float64) string {
	if v == nil {
		return notSpecified
	}
	return fmt.Sprintf("%.1f", *v)
}

func pctOrNotSpecified(v *float64) string {
	if v == nil {
		return notSpecified
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func boolOrNotSpecified(v *bool) string {
	if v == nil {
		return notSpecified
	}
	if *v {
		return "Yes"
	}
	return "No"
}
