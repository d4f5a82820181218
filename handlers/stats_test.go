package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sitemonitor/models"
	"sitemonitor/store"
)

func TestStatsOverview(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.AddObservation("site-a", monday.Add(10*time.Hour), models.StatusActive)
	mem.AddObservation("site-b", monday.Add(11*time.Hour), models.StatusInactive)
	mem.AddRule(models.BusinessHoursRule{SiteID: "site-c", DayOfWeek: 0, StartLocal: "09:00", EndLocal: "17:00"})
	mem.SetTimezone("site-d", "America/Denver")

	require.NoError(t, mem.CreateReport(ctx, "r-running", time.Now().UTC()))
	require.NoError(t, mem.CreateReport(ctx, "r-complete", time.Now().UTC()))
	require.NoError(t, mem.CompleteReport(ctx, "r-complete", "report_r-complete.csv", time.Now().UTC()))
	require.NoError(t, mem.CreateReport(ctx, "r-failed", time.Now().UTC()))
	require.NoError(t, mem.FailReport(ctx, "r-failed", time.Now().UTC()))

	router := newRouter(t, mem)
	w := do(router, http.MethodGet, "/api/stats/overview")
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.OverviewStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, 4, stats.TotalSites)
	require.Equal(t, 2, stats.TotalObservations)
	require.NotNil(t, stats.LatestObservation)
	require.True(t, stats.LatestObservation.Equal(monday.Add(11*time.Hour)))
	require.Equal(t, 1, stats.ReportsRunning)
	require.Equal(t, 1, stats.ReportsComplete)
	require.Equal(t, 1, stats.ReportsFailed)
}
