package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/async"
	"github.com/ghda/fieldreports/internal/entity"
	"github.com/ghda/fieldreports/internal/export"
	"github.com/ghda/fieldreports/internal/llm"
	"github.com/ghda/fieldreports/internal/pipeline"
	"github.com/ghda/fieldreports/internal/repository"
	"github.com/ghda/fieldreports/internal/service"
)

type fixedCompleter struct{ response string }

func (c *fixedCompleter) Complete(context.Context, string, llm.Options) (string, error) {
	return c.response, nil
}

type recordingQueue struct{ jobs []async.Job }

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *recordingQueue) Shutdown(context.Context) {}

func newTestServer(t *testing.T) (http.Handler, *repository.ReportRepository, *recordingQueue) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	reports := repository.NewReportRepository(db, nil)
	require.NoError(t, reports.EnsureSchema(context.Background()))

	completer := &fixedCompleter{response: `{
		"facility": {"name": "Rampur PHC", "type": "PHC", "district": "Sitapur"},
		"beneficiaries": {"expected": 40, "attended": 25},
		"executive_summary": "Adequate clinic.",
		"overall_score": 68
	}`}
	svc := service.NewAnalysisService(pipeline.NewAnalyzer(completer), reports, nil)
	queue := &recordingQueue{}
	srv := New(svc, reports, export.NewService(reports, nil), queue, t.TempDir(), nil)
	return srv.Router(), reports, queue
}

func multipartUpload(t *testing.T, url, filename, contents string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDocument_Sync(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "/api/v1/documents", "visit.txt", "clinic notes"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var rep entity.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, constants.StatusSuccess, rep.Status)
	assert.Equal(t, "Rampur PHC", rep.FacilityName)
	assert.Equal(t, 68, rep.OverallScore)
}

func TestUploadDocument_Async(t *testing.T) {
	router, reports, queue := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "/api/v1/documents?async=1", "visit.txt", "clinic notes"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var rep entity.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, constants.StatusQueued, rep.Status)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, rep.ID, queue.jobs[0].ReportID)

	stored, err := reports.Get(context.Background(), rep.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusQueued, stored.Status)
}

func TestUploadDocument_RejectsUnsupportedExtension(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "/api/v1/documents", "report.exe", "zzz"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReport(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "/api/v1/documents", "visit.txt", "clinic notes"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var rep entity.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+rep.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got entity.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "PHC", got.Analysis.Facility.Type)
}

func TestGetReport_NotFoundAndBadID(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/00000000-0000-0000-0000-000000000001", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReportsAndSummary(t *testing.T) {
	router, _, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartUpload(t, "/api/v1/documents", fmt.Sprintf("visit-%d.txt", i), "clinic notes"))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports?district=Sitapur", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Count   int             `json:"count"`
		Reports []entity.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 2, listing.Count)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats repository.SummaryStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[string(constants.StatusSuccess)])
}

func TestReportArtifact_Markdown(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "/api/v1/documents", "visit.txt", "clinic notes"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var rep entity.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/reports/"+rep.ID.String()+"/artifact?format=markdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "# Field Report Analysis: Rampur PHC")
}

func TestExportXLSX(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "/api/v1/documents", "visit.txt", "clinic notes"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/reports.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	// XLSX files are zip archives.
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestHealthz(t *testing.T) {
	router, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
