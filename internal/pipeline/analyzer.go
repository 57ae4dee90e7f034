// Package pipeline runs the analysis flow for field reports: extract text,
// prompt the model, repair and normalize the response, render artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/entity"
	"github.com/ghda/fieldreports/internal/extract"
	"github.com/ghda/fieldreports/internal/llm"
)

// Outcome is the result of analyzing one document. Status is SUCCESS when the
// model response normalized cleanly, DEGENERATE when no JSON could be
// recovered and the fallback result was substituted. Failed runs return an
// error instead of an Outcome.
type Outcome struct {
	Status      constants.AnalysisStatus
	Result      *entity.AnalysisResult
	Extraction  extract.TextExtractionResult
	Truncated   bool
	RawResponse string
	Duration    time.Duration
}

// Analyzer wires the pipeline stages together. Zero-value options fall back
// to sensible defaults so tests can construct one with just a Completer.
type Analyzer struct {
	extractor     extract.TextExtractor
	completer     llm.Completer
	profile       *llm.Profile
	maxInputChars int
	logger        *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

func WithExtractor(e extract.TextExtractor) AnalyzerOption {
	return func(a *Analyzer) { a.extractor = e }
}

func WithProfile(p *llm.Profile) AnalyzerOption {
	return func(a *Analyzer) { a.profile = p }
}

func WithMaxInputChars(n int) AnalyzerOption {
	return func(a *Analyzer) { a.maxInputChars = n }
}

func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

func NewAnalyzer(completer llm.Completer, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		completer:     completer,
		profile:       llm.FullProfile(),
		maxInputChars: llm.DefaultMaxInputChars,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.extractor == nil {
		a.extractor = extract.NewExtractor(a.logger)
	}
	return a
}

// AnalyzeFile extracts text from the document at path and analyzes it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Outcome, error) {
	extraction, err := a.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", filepath.Base(path), err)
	}
	out, err := a.AnalyzeText(ctx, filepath.Base(path), extraction.Text)
	if err != nil {
		return nil, err
	}
	out.Extraction = extraction
	return out, nil
}

// AnalyzeText runs the model stages on already extracted text. Unrecoverable
// model output produces a DEGENERATE outcome, not an error; transport and
// timeout failures are errors.
func (a *Analyzer) AnalyzeText(ctx context.Context, name, text string) (*Outcome, error) {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("analyzing %s: document contains no text", name)
	}

	prompt, truncated := llm.BuildPrompt(text, a.profile, a.maxInputChars)
	a.logger.Info("analyze.start",
		"name", name,
		"profile", a.profile.Name,
		"text_len", len(text),
		"truncated", truncated,
	)

	raw, err := a.completer.Complete(ctx, prompt, llm.Options{})
	if err != nil {
		a.logger.Error("analyze.complete_failed", "name", name, "error", err)
		return nil, fmt.Errorf("completing %s: %w", name, err)
	}

	out := &Outcome{Truncated: truncated, RawResponse: raw}
	candidate, err := llm.ParseCandidateJSON(raw)
	if err == nil {
		if _, ok := candidate.(map[string]any); !ok {
			err = &llm.SchemaMismatchError{Got: fmt.Sprintf("%T", candidate)}
		}
	}
	if err != nil {
		var unparsable *llm.UnparsableResponseError
		var mismatch *llm.SchemaMismatchError
		if !errors.As(err, &unparsable) && !errors.As(err, &mismatch) {
			return nil, fmt.Errorf("parsing response for %s: %w", name, err)
		}
		a.logger.Warn("analyze.degenerate", "name", name, "error", err)
		out.Status = constants.StatusDegenerate
		out.Result = llm.Degenerate()
		out.Duration = time.Since(start)
		return out, nil
	}

	result, err := llm.Normalize(candidate, a.profile)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s: %w", name, err)
	}
	// A schema violation after normalization is a bug in the profile or the
	// normalizer, not a property of the document. Log it and keep the result.
	if err := llm.ValidateResult(a.profile, result); err != nil {
		a.logger.Warn("analyze.schema_violation", "name", name, "error", err)
	}

	out.Status = constants.StatusSuccess
	out.Result = result
	out.Duration = time.Since(start)
	a.logger.Info("analyze.ok",
		"name", name,
		"facility", result.Facility.Name,
		"score", result.OverallScore,
		"low_confidence", len(result.LowConfidenceFields),
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}
