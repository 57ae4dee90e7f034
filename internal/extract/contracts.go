package extract

import (
	"context"
	"time"
)

// TextExtractor is stage 1 of the pipeline: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "docx" | "pdf-text" | "plain-text"
	Duration time.Duration
	Warnings []string
}
