package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/ghda/fieldreports/internal/entity"
)

type rgb struct{ r, g, b int }

// severityColors matches the palette used in printed district dashboards.
var severityColors = map[string]rgb{
	"critical": {0xC6, 0x28, 0x28},
	"high":     {0xE6, 0x51, 0x00},
	"medium":   {0xF9, 0xA8, 0x25},
	"low":      {0x2E, 0x7D, 0x32},
}

func renderPDF(res *entity.AnalysisResult) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 18)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.MultiCell(0, 9, "Field Report Analysis: "+orUnknown(res.Facility.Name), "", "L", false)
	doc.Ln(2)

	doc.SetFont("Helvetica", "", 10)
	meta := fmt.Sprintf("%s | %s, %s, %s | Clinic date: %s",
		orUnknown(res.Facility.Type),
		orUnknown(res.Facility.Block),
		orUnknown(res.Facility.District),
		orUnknown(res.Facility.State),
		strOrNotSpecified(res.ClinicDate))
	doc.MultiCell(0, 5, meta, "", "L", false)
	doc.Ln(2)

	writeScoreBadge(doc, res.OverallScore)
	doc.Ln(6)

	pdfSection(doc, "Executive Summary")
	pdfBody(doc, orNotSpecifiedText(res.ExecutiveSummary))

	pdfSection(doc, "Key Findings")
	pdfBullets(doc, res.KeyFindings)

	pdfSection(doc, "Critical Issues")
	pdfBullets(doc, res.CriticalIssues)

	pdfSection(doc, "Beneficiary Attendance")
	pdfBody(doc, fmt.Sprintf("Expected: %s    Attended: %s    Rate: %s",
		intOrNotSpecified(res.Beneficiaries.Expected),
		intOrNotSpecified(res.Beneficiaries.Attended),
		pctOrNotSpecified(res.Beneficiaries.AttendanceRate)))
	for _, barrier := range res.Beneficiaries.Barriers {
		writeSeverityLine(doc, barrier.Severity,
			fmt.Sprintf("%s (affects %d). %s", barrier.Reason, barrier.Count, barrier.Intervention))
	}
	doc.Ln(2)

	pdfSection(doc, "Infrastructure Gaps")
	if len(res.InfrastructureGaps) == 0 {
		pdfBody(doc, "None reported.")
	}
	for _, gap := range res.InfrastructureGaps {
		writeSeverityLine(doc, gap.Severity, fmt.Sprintf("%s: %s", gap.Type, gap.Description))
	}
	doc.Ln(2)

	pdfSection(doc, "Risks")
	if len(res.Risks) == 0 {
		pdfBody(doc, "None identified.")
	}
	for _, risk := range res.Risks {
		writeSeverityLine(doc, risk.Level, fmt.Sprintf("%s. Action: %s (%s)", risk.Risk, risk.ActionNeeded, risk.Timeline))
	}
	doc.Ln(2)

	pdfSection(doc, "Recommendations")
	if len(res.Recommendations) == 0 {
		pdfBody(doc, "None.")
	}
	doc.SetFont("Helvetica", "", 10)
	for _, rec := range res.Recommendations {
		line := fmt.Sprintf("%d. %s", rec.Priority, rec.Action)
		if rec.Responsible != "" {
			line += " (" + rec.Responsible + ")"
		}
		doc.MultiCell(0, 5, line, "", "L", false)
	}

	if len(res.LowConfidenceFields) > 0 {
		doc.Ln(2)
		pdfSection(doc, "Low Confidence Fields")
		pdfBody(doc, "Verify manually: "+strings.Join(res.LowConfidenceFields, ", "))
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeScoreBadge(doc *fpdf.Fpdf, score int) {
	c := severityColors["low"]
	switch {
	case score < 40:
		c = severityColors["critical"]
	case score < 60:
		c = severityColors["high"]
	case score < 75:
		c = severityColors["medium"]
	}
	doc.SetFillColor(c.r, c.g, c.b)
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(48, 9, fmt.Sprintf("Overall Score: %d/100", score), "", 1, "C", true, 0, "")
	doc.SetTextColor(0, 0, 0)
}

func writeSeverityLine(doc *fpdf.Fpdf, severity, text string) {
	c, ok := severityColors[strings.ToLower(severity)]
	if !ok {
		c = rgb{0x61, 0x61, 0x61}
	}
	doc.SetFillColor(c.r, c.g, c.b)
	y := doc.GetY()
	doc.Rect(15, y+1, 2.5, 4, "F")
	doc.SetX(20)
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, fmt.Sprintf("[%s] %s", strings.ToUpper(severity), text), "", "L", false)
}

func pdfSection(doc *fpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func pdfBody(doc *fpdf.Fpdf, text string) {
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, text, "", "L", false)
	doc.Ln(1)
}

func pdfBullets(doc *fpdf.Fpdf, items []string) {
	if len(items) == 0 {
		pdfBody(doc, "None.")
		return
	}
	doc.SetFont("Helvetica", "", 10)
	for _, item := range items {
		doc.MultiCell(0, 5, "- "+item, "", "L", false)
	}
	doc.Ln(1)
}

func orNotSpecifiedText(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}
