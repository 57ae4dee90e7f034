package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF concatenates per-page text in page order, skipping pages whose
// extracted text is empty or whitespace-only (common in scanned reports).
func extractPDF(path string) (TextExtractionResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return TextExtractionResult{}, &ExtractionError{Path: path, Cause: fmt.Errorf("open pdf: %w", err)}
	}
	defer f.Close()

	var parts []string
	var warnings []string
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 && len(warnings) == total && total > 0 {
		// Every page failed to decode: the document is unreadable, not empty.
		return TextExtractionResult{}, &ExtractionError{Path: path, Cause: fmt.Errorf("no readable pages: %s", strings.Join(warnings, "; "))}
	}

	return TextExtractionResult{
		Text:     strings.Join(parts, "\n"),
		Pages:    total,
		Method:   "pdf-text",
		Warnings: warnings,
	}, nil
}
