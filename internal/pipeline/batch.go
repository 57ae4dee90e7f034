package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ghda/fieldreports/constants"
)

// DocumentResult records the per-document outcome of a batch run. A failed
// document carries Err and a FAILED status; the batch keeps going.
type DocumentResult struct {
	Path    string
	Outcome *Outcome
	Err     error
}

// Status returns the terminal status for this document.
func (r DocumentResult) Status() constants.AnalysisStatus {
	if r.Err != nil {
		return constants.StatusFailed
	}
	return r.Outcome.Status
}

// BatchSummary aggregates a finished batch run.
type BatchSummary struct {
	Total      int
	Succeeded  int
	Degenerate int
	Failed     int
	Duration   time.Duration
}

// BatchRunner analyzes many documents with bounded concurrency. One failing
// document never aborts the batch.
type BatchRunner struct {
	analyzer *Analyzer
	workers  int
	logger   *slog.Logger
}

func NewBatchRunner(analyzer *Analyzer, workers int, logger *slog.Logger) *BatchRunner {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{analyzer: analyzer, workers: workers, logger: logger}
}

// Run analyzes every path and returns results in the same order as paths.
func (b *BatchRunner) Run(ctx context.Context, paths []string) ([]DocumentResult, BatchSummary) {
	start := time.Now()
	results := make([]DocumentResult, len(paths))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	b.logger.Info("batch.start", "documents", len(paths), "workers", b.workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			out, err := b.analyzer.AnalyzeFile(gctx, path)
			mu.Lock()
			results[i] = DocumentResult{Path: path, Outcome: out, Err: err}
			mu.Unlock()
			if err != nil {
				b.logger.Error("batch.document_failed", "path", path, "error", err)
			}
			// Per-document failures are recorded, not propagated, so the
			// group context stays live for the rest of the batch.
			return nil
		})
	}
	_ = g.Wait()

	summary := BatchSummary{Total: len(paths), Duration: time.Since(start)}
	for _, r := range results {
		switch r.Status() {
		case constants.StatusSuccess:
			summary.Succeeded++
		case constants.StatusDegenerate:
			summary.Degenerate++
		default:
			summary.Failed++
		}
	}
	b.logger.Info("batch.done",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"degenerate", summary.Degenerate,
		"failed", summary.Failed,
		"elapsed_ms", summary.Duration.Milliseconds(),
	)
	return results, summary
}

// CollectDocuments lists the analyzable files directly under dir, sorted by
// name. Subdirectories and unknown extensions are skipped.
func CollectDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := constants.NormalizeExt(filepath.Ext(e.Name()))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			continue
		}
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
