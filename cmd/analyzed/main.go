// Command analyzed runs the field report analysis HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghda/fieldreports/internal/async"
	"github.com/ghda/fieldreports/internal/common"
	"github.com/ghda/fieldreports/internal/export"
	"github.com/ghda/fieldreports/internal/llm"
	"github.com/ghda/fieldreports/internal/pipeline"
	"github.com/ghda/fieldreports/internal/repository"
	"github.com/ghda/fieldreports/internal/server"
	"github.com/ghda/fieldreports/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("missing DB_URL environment variable")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.OpenPostgres(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	reports := repository.NewReportRepository(db, logger)
	if err := reports.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	completer, err := pipeline.NewCompleter(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to build llm backend", "error", err)
		os.Exit(1)
	}

	analyzer := pipeline.NewAnalyzer(completer,
		pipeline.WithProfile(llm.ProfileByName(cfg.Pipeline.SchemaProfile)),
		pipeline.WithMaxInputChars(cfg.Pipeline.MaxInputChars),
		pipeline.WithLogger(logger),
	)
	svc := service.NewAnalysisService(analyzer, reports, logger)
	queue := async.NewAnalysisQueue(svc, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithJobTimeout(cfg.LLM.Timeout+time.Minute),
	)
	exports := export.NewService(reports, logger)

	srv := server.New(svc, reports, exports, queue, cfg.Server.UploadDir, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("server.shutdown_signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("server.stopped")
}
