package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/llm"
)

// stubCompleter returns canned responses in order, or a fixed error.
type stubCompleter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, _ llm.Options) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

const goodResponse = `{
	"facility": {"name": "Rampur PHC", "type": "PHC", "district": "Sitapur"},
	"clinic_date": "2026-03-15",
	"beneficiaries": {"expected": 40, "attended": 25},
	"executive_summary": "Clinic functioned adequately with attendance gaps.",
	"overall_score": 68
}`

func TestAnalyzeText_CleanJSON(t *testing.T) {
	stub := &stubCompleter{responses: []string{goodResponse}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "clinic notes")
	require.NoError(t, err)

	assert.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, "Rampur PHC", out.Result.Facility.Name)
	require.NotNil(t, out.Result.Beneficiaries.AttendanceRate)
	assert.InDelta(t, 0.625, *out.Result.Beneficiaries.AttendanceRate, 1e-9)
	assert.Equal(t, 68, out.Result.OverallScore)
}

func TestAnalyzeText_FencedJSON(t *testing.T) {
	stub := &stubCompleter{responses: []string{"Here you go:\n```json\n" + goodResponse + "\n```"}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "clinic notes")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, "Rampur PHC", out.Result.Facility.Name)
}

func TestAnalyzeText_AttendanceRateDerived(t *testing.T) {
	stub := &stubCompleter{responses: []string{`{"beneficiaries": {"expected": 25, "attended": 18}}`}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "Expected: 25, Attended: 18")
	require.NoError(t, err)

	assert.Equal(t, constants.StatusSuccess, out.Status)
	require.NotNil(t, out.Result.Beneficiaries.AttendanceRate)
	assert.InDelta(t, 0.72, *out.Result.Beneficiaries.AttendanceRate, 1e-9)
}

func TestAnalyzeText_OverCapacityAttendanceSucceeds(t *testing.T) {
	stub := &stubCompleter{responses: []string{`{"beneficiaries": {"expected": 25, "attended": 30}}`}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "Expected: 25, Attended: 30")
	require.NoError(t, err)

	assert.Equal(t, constants.StatusSuccess, out.Status)
	require.NotNil(t, out.Result.Beneficiaries.AttendanceRate)
	assert.InDelta(t, 1.2, *out.Result.Beneficiaries.AttendanceRate, 1e-9)
}

func TestAnalyzeText_ScoreClampedToRange(t *testing.T) {
	stub := &stubCompleter{responses: []string{"```json\n{\"overall_score\": 150}\n```"}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "clinic notes")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, 100, out.Result.OverallScore)
}

func TestAnalyzeText_TrailingCommasRepaired(t *testing.T) {
	stub := &stubCompleter{responses: []string{`{"overall_score": 50, "key_findings": ["a",],}`}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "clinic notes")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, 50, out.Result.OverallScore)
}

func TestAnalyzeText_GarbageGoesDegenerate(t *testing.T) {
	stub := &stubCompleter{responses: []string{"I am unable to help with that request."}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "clinic notes")
	require.NoError(t, err)

	assert.Equal(t, constants.StatusDegenerate, out.Status)
	assert.Equal(t, llm.DegenerateSummary, out.Result.ExecutiveSummary)
	assert.Equal(t, 0, out.Result.OverallScore)
}

func TestAnalyzeText_NonObjectJSONGoesDegenerate(t *testing.T) {
	stub := &stubCompleter{responses: []string{`"just a string"`}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "clinic notes")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDegenerate, out.Status)
}

func TestAnalyzeText_BackendErrorIsFatal(t *testing.T) {
	stub := &stubCompleter{err: &llm.TransportError{Backend: "openai", Cause: errors.New("connection refused")}}
	_, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "clinic notes")
	require.Error(t, err)
	var transport *llm.TransportError
	assert.True(t, errors.As(err, &transport))
}

func TestAnalyzeText_EmptyResponseIsFatal(t *testing.T) {
	stub := &stubCompleter{err: &llm.EmptyResponseError{Backend: "openai", Model: "gpt-4o-mini"}}
	out, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "clinic notes")
	require.Error(t, err)
	assert.Nil(t, out)
	var empty *llm.EmptyResponseError
	assert.True(t, errors.As(err, &empty))
}

func TestAnalyzeText_EmptyDocumentIsFatal(t *testing.T) {
	stub := &stubCompleter{responses: []string{goodResponse}}
	_, err := NewAnalyzer(stub).AnalyzeText(context.Background(), "visit.txt", "   \n\t ")
	require.Error(t, err)
	assert.Zero(t, stub.calls)
}

func TestAnalyzeText_TruncationFlagged(t *testing.T) {
	stub := &stubCompleter{responses: []string{goodResponse}}
	a := NewAnalyzer(stub, WithMaxInputChars(10))
	out, err := a.AnalyzeText(context.Background(), "visit.txt", "0123456789 overflow text")
	require.NoError(t, err)
	assert.True(t, out.Truncated)
}

func TestAnalyzeFile_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "visit.txt")
	require.NoError(t, os.WriteFile(path, []byte("ANC clinic, 25 of 40 attended."), 0o644))

	stub := &stubCompleter{responses: []string{goodResponse}}
	out, err := NewAnalyzer(stub).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, "plain-text", out.Extraction.Method)
	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], "25 of 40 attended")
}

func TestAnalyzeFile_MissingFile(t *testing.T) {
	stub := &stubCompleter{responses: []string{goodResponse}}
	_, err := NewAnalyzer(stub).AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
	assert.Zero(t, stub.calls)
}
