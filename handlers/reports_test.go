package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitemonitor/config"
	"sitemonitor/handlers"
	"sitemonitor/models"
	"sitemonitor/services"
	"sitemonitor/store"
)

var monday = time.Date(2023, time.January, 23, 0, 0, 0, 0, time.UTC)

func newRouter(t *testing.T, mem *store.Memory) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	reports := services.NewReports(log, mem, config.Config{
		ReportsDir:       t.TempDir(),
		AggregateWorkers: 2,
	}, nil)
	h := handlers.New(log, reports, mem)

	r := gin.New()
	r.POST("/trigger_report", h.TriggerReport)
	r.GET("/get_report/:report_id", h.GetReport)
	r.Group("/api").GET("/stats/overview", h.StatsOverview)
	return r
}

func do(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestTriggerReportAccepted(t *testing.T) {
	mem := store.NewMemory()
	mem.AddObservation("site-1", monday.Add(12*time.Hour), models.StatusActive)
	router := newRouter(t, mem)

	w := do(router, http.MethodPost, "/trigger_report")
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["report_id"])

	// Let the background run finish before the test tears down.
	require.Eventually(t, func() bool {
		job, err := mem.GetReport(t.Context(), resp["report_id"])
		return err == nil && job.State != models.ReportRunning
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGetReportUnknownID(t *testing.T) {
	router := newRouter(t, store.NewMemory())

	w := do(router, http.MethodGet, "/get_report/no-such-id")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":"report not found"}`, w.Body.String())
}

func TestGetReportRunningAndFailed(t *testing.T) {
	mem := store.NewMemory()
	router := newRouter(t, mem)

	require.NoError(t, mem.CreateReport(t.Context(), "still-going", time.Now().UTC()))
	w := do(router, http.MethodGet, "/get_report/still-going")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"Running"}`, w.Body.String())

	require.NoError(t, mem.CreateReport(t.Context(), "went-bad", time.Now().UTC()))
	require.NoError(t, mem.FailReport(t.Context(), "went-bad", time.Now().UTC()))
	w = do(router, http.MethodGet, "/get_report/went-bad")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"Failed"}`, w.Body.String())
}

func TestGetReportCompleteDownloadsArtifact(t *testing.T) {
	mem := store.NewMemory()
	router := newRouter(t, mem)

	artifact := "site_id,uptime_last_hour_minutes\nsite-1,60.00\n"
	path := filepath.Join(t.TempDir(), "report_done-1.csv")
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0o644))

	require.NoError(t, mem.CreateReport(t.Context(), "done-1", time.Now().UTC()))
	require.NoError(t, mem.CompleteReport(t.Context(), "done-1", path, time.Now().UTC()))

	w := do(router, http.MethodGet, "/get_report/done-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="report_done-1.csv"`, w.Header().Get("Content-Disposition"))
	require.Equal(t, artifact, w.Body.String())
}

func TestReportTriggerPollDownloadFlow(t *testing.T) {
	mem := store.NewMemory()
	mem.SetTimezone("site-1", "UTC")
	mem.AddObservation("site-1", monday.Add(12*time.Hour), models.StatusActive)
	mem.AddObservation("site-1", monday.Add(13*time.Hour), models.StatusInactive)
	router := newRouter(t, mem)

	w := do(router, http.MethodPost, "/trigger_report")
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	reportID := resp["report_id"]
	require.NotEmpty(t, reportID)

	// Poll until the job turns into a download.
	var final *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		poll := do(router, http.MethodGet, "/get_report/"+reportID)
		if poll.Header().Get("Content-Disposition") == "" {
			return false
		}
		final = poll
		return true
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, final.Code)
	require.Equal(t, `attachment; filename="report_`+reportID+`.csv"`,
		final.Header().Get("Content-Disposition"))

	want := "site_id,uptime_last_hour_minutes,downtime_last_hour_minutes," +
		"uptime_last_day_hours,downtime_last_day_hours," +
		"uptime_last_week_hours,downtime_last_week_hours\n" +
		"site-1,60.00,0.00,1.00,0.00,1.00,0.00\n"
	require.Equal(t, want, final.Body.String())
}
