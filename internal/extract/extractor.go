package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ghda/fieldreports/constants"
)

// Extractor picks an extraction strategy based on file extension. Anything
// that is not DOCX or PDF is read as UTF-8 text with invalid bytes replaced.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return TextExtractionResult{}, &NotFoundError{Path: path}
		}
		return TextExtractionResult{}, &ExtractionError{Path: path, Cause: err}
	}

	format := constants.MapExtToFormat(filepath.Ext(path))
	e.logger.Debug("extract.start", "path", path, "format", format)

	var res TextExtractionResult
	var err error
	switch format {
	case constants.DOCX:
		res, err = extractDOCX(path)
	case constants.PDF:
		res, err = extractPDF(path)
	default:
		res, err = extractPlainText(path)
	}
	if err != nil {
		e.logger.Error("extract.failed", "path", path, "format", format, "error", err)
		return res, err
	}

	res.Duration = time.Since(start)
	e.logger.Info("extract.ok",
		"path", path,
		"format", format,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// extractPlainText reads the file as UTF-8, replacing invalid byte sequences
// instead of failing. Field reports often arrive with mixed encodings.
func extractPlainText(path string) (TextExtractionResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return TextExtractionResult{}, &ExtractionError{Path: path, Cause: err}
	}
	text := string(b)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	return TextExtractionResult{Text: text, Pages: 1, Method: "plain-text"}, nil
}
