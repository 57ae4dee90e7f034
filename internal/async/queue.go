// Package async runs queued document analyses on a bounded worker pool.
package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/ghda/fieldreports/internal/service"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("analysis queue is shut down")

// Job is one queued document analysis.
type Job struct {
	ReportID    uuid.UUID
	Path        string
	Filename    string
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

type AnalysisQueue struct {
	svc     *service.AnalysisService
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*AnalysisQueue)

func WithWorkers(n int) Option {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *AnalysisQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewAnalysisQueue(svc *service.AnalysisService, logger *slog.Logger, opts ...Option) *AnalysisQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &AnalysisQueue{
		svc:     svc,
		logger:  logger,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *AnalysisQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					_, err := q.svc.AnalyzeAndStore(ctx, job.ReportID, job.Path, job.Filename)
					cancel()

					if err != nil {
						q.logger.Error("queue.job.failed", "worker_id", workerID, "report_id", job.ReportID, "error", err)
					} else {
						q.logger.Info("queue.job.done", "worker_id", workerID, "report_id", job.ReportID)
					}
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *AnalysisQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue_after_shutdown", "report_id", job.ReportID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.job.accepted", "report_id", job.ReportID, "filename", job.Filename)
	default:
		q.logger.Warn("queue.full_backpressure", "report_id", job.ReportID)
		q.ch <- job
	}
	return nil
}

func (q *AnalysisQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown_interrupted")
	case <-done:
		q.logger.Info("queue.drained")
	}
}
