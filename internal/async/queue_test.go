package async

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/llm"
	"github.com/ghda/fieldreports/internal/pipeline"
	"github.com/ghda/fieldreports/internal/repository"
	"github.com/ghda/fieldreports/internal/service"
)

type fixedCompleter struct{ response string }

func (c *fixedCompleter) Complete(context.Context, string, llm.Options) (string, error) {
	return c.response, nil
}

func TestQueueProcessesJobsAndDrainsOnShutdown(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	reports := repository.NewReportRepository(db, nil)
	require.NoError(t, reports.EnsureSchema(context.Background()))

	completer := &fixedCompleter{response: `{"facility": {"name": "Rampur PHC"}, "overall_score": 60}`}
	svc := service.NewAnalysisService(pipeline.NewAnalyzer(completer), reports, nil)
	queue := NewAnalysisQueue(svc, nil, WithWorkers(2), WithQueueSize(8))

	dir := t.TempDir()
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		path := filepath.Join(dir, ids[i].String()+".txt")
		require.NoError(t, os.WriteFile(path, []byte("clinic notes"), 0o644))
		require.NoError(t, queue.Enqueue(context.Background(), Job{
			ReportID:    ids[i],
			Path:        path,
			Filename:    "visit.txt",
			SubmittedAt: time.Now(),
		}))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)

	for _, id := range ids {
		rep, err := reports.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, constants.StatusSuccess, rep.Status)
		assert.Equal(t, "Rampur PHC", rep.FacilityName)
	}
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "queue2.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	reports := repository.NewReportRepository(db, nil)
	require.NoError(t, reports.EnsureSchema(context.Background()))
	svc := service.NewAnalysisService(pipeline.NewAnalyzer(&fixedCompleter{response: "{}"}), reports, nil)

	queue := NewAnalysisQueue(svc, nil, WithWorkers(1))
	queue.Shutdown(context.Background())

	// Enqueue after shutdown rejects the job instead of dropping it silently.
	err = queue.Enqueue(context.Background(), Job{ReportID: uuid.New()})
	require.ErrorIs(t, err, ErrQueueClosed)
}
