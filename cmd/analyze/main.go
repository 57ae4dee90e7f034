// Command analyze runs the analysis pipeline over local files and writes
// report artifacts, without a database or server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghda/fieldreports/internal/common"
	"github.com/ghda/fieldreports/internal/llm"
	"github.com/ghda/fieldreports/internal/pipeline"
	"github.com/ghda/fieldreports/internal/render"
)

func main() {
	var (
		dirFlag     = flag.String("dir", "", "analyze every supported file in this directory")
		fileFlag    = flag.String("file", "", "analyze a single file")
		outFlag     = flag.String("out", "", "output directory for artifacts (default OUTPUT_DIR or ./reports)")
		formatsFlag = flag.String("format", "json,markdown", "comma-separated artifact formats: json,markdown,pdf")
		backendFlag = flag.String("backend", "", "model backend: openai or anthropic (default LLM_BACKEND)")
		modelFlag   = flag.String("model", "", "model name override")
		profileFlag = flag.String("profile", "", "schema profile: full or compact (default SCHEMA_PROFILE)")
		workersFlag = flag.Int("concurrency", 0, "parallel documents (default PIPELINE_WORKERS)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *backendFlag != "" {
		cfg.LLM.Backend = *backendFlag
	}
	if *modelFlag != "" {
		cfg.LLM.Model = *modelFlag
	}
	if *profileFlag != "" {
		cfg.Pipeline.SchemaProfile = *profileFlag
	}
	if *outFlag != "" {
		cfg.Pipeline.OutputDir = *outFlag
	}
	if *workersFlag > 0 {
		cfg.Pipeline.Workers = *workersFlag
	}

	formats, err := parseFormats(*formatsFlag)
	if err != nil {
		fatal(logger, err)
	}

	paths, err := collectTargets(*dirFlag, *fileFlag)
	if err != nil {
		fatal(logger, err)
	}
	if len(paths) == 0 {
		fatal(logger, fmt.Errorf("nothing to analyze: pass -file or -dir with supported documents"))
	}

	completer, err := pipeline.NewCompleter(cfg.LLM, logger)
	if err != nil {
		fatal(logger, err)
	}
	analyzer := pipeline.NewAnalyzer(completer,
		pipeline.WithProfile(llm.ProfileByName(cfg.Pipeline.SchemaProfile)),
		pipeline.WithMaxInputChars(cfg.Pipeline.MaxInputChars),
		pipeline.WithLogger(logger),
	)
	runner := pipeline.NewBatchRunner(analyzer, cfg.Pipeline.Workers, logger)

	results, summary := runner.Run(context.Background(), paths)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "FAILED      %s: %v\n", r.Path, r.Err)
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
		written, err := render.WriteArtifacts(r.Outcome.Result, cfg.Pipeline.OutputDir, stem, formats)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAILED      %s: writing artifacts: %v\n", r.Path, err)
			continue
		}
		fmt.Printf("%-11s %s -> %s\n", r.Outcome.Status, r.Path, strings.Join(written, ", "))
	}

	fmt.Printf("done: %d total, %d succeeded, %d degenerate, %d failed in %s\n",
		summary.Total, summary.Succeeded, summary.Degenerate, summary.Failed,
		summary.Duration.Round(time.Millisecond))

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func parseFormats(s string) ([]render.Format, error) {
	var formats []render.Format
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := render.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no artifact formats selected")
	}
	return formats, nil
}

func collectTargets(dir, file string) ([]string, error) {
	switch {
	case dir != "" && file != "":
		return nil, fmt.Errorf("-dir and -file are mutually exclusive")
	case file != "":
		return []string{file}, nil
	case dir != "":
		return pipeline.CollectDocuments(dir)
	}
	return nil, nil
}

func fatal(logger *slog.Logger, err error) {
	logger.Error("analyze.fatal", "error", err)
	os.Exit(1)
}
