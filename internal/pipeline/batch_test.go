package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/llm"
)

// markerCompleter answers based on the prompt contents so concurrent batches
// stay deterministic.
type markerCompleter struct {
	mu sync.Mutex
}

func (c *markerCompleter) Complete(_ context.Context, prompt string, _ llm.Options) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.Contains(prompt, "GARBAGE") {
		return "no structured data here", nil
	}
	return goodResponse, nil
}

func TestBatchRunner_MixedOutcomes(t *testing.T) {
	dir := t.TempDir()
	okPath := filepath.Join(dir, "a-good.txt")
	degPath := filepath.Join(dir, "b-garbled.txt")
	require.NoError(t, os.WriteFile(okPath, []byte("clinic held, 25 of 40 attended"), 0o644))
	require.NoError(t, os.WriteFile(degPath, []byte("GARBAGE marker document"), 0o644))
	missing := filepath.Join(dir, "c-missing.txt")

	analyzer := NewAnalyzer(&markerCompleter{})
	runner := NewBatchRunner(analyzer, 2, nil)

	results, summary := runner.Run(context.Background(), []string{okPath, degPath, missing})
	require.Len(t, results, 3)

	// Results keep input order.
	assert.Equal(t, okPath, results[0].Path)
	assert.Equal(t, constants.StatusSuccess, results[0].Status())
	assert.Equal(t, constants.StatusDegenerate, results[1].Status())
	assert.Equal(t, constants.StatusFailed, results[2].Status())
	assert.Error(t, results[2].Err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Degenerate)
	assert.Equal(t, 1, summary.Failed)
}

func TestBatchRunner_ContinuesPastFatalFailure(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "one.txt")
	third := filepath.Join(dir, "three.txt")
	require.NoError(t, os.WriteFile(first, []byte("clinic held"), 0o644))
	require.NoError(t, os.WriteFile(third, []byte("clinic held"), 0o644))
	missing := filepath.Join(dir, "two.txt")

	runner := NewBatchRunner(NewAnalyzer(&markerCompleter{}), 1, nil)
	results, summary := runner.Run(context.Background(), []string{first, missing, third})
	require.Len(t, results, 3)

	assert.Equal(t, constants.StatusSuccess, results[0].Status())
	assert.Equal(t, constants.StatusFailed, results[1].Status())
	assert.Equal(t, constants.StatusSuccess, results[2].Status())
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
}

func TestCollectDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.docx", "notes.pdf", "ignore.xlsx", ".hidden.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	paths, err := CollectDocuments(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "a.docx"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b.txt"), paths[1])
	assert.Equal(t, filepath.Join(dir, "notes.pdf"), paths[2])
}
