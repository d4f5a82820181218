package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sitemonitor/models"
	"sitemonitor/services"
	"sitemonitor/store"
)

func weekdayRules() []models.BusinessHoursRule {
	rules := make([]models.BusinessHoursRule, 0, 5)
	for day := 0; day < 5; day++ {
		rules = append(rules, rule(day, "09:00", "17:00"))
	}
	return rules
}

func obs(siteID string, ts time.Time, status models.Status) models.Observation {
	return models.Observation{SiteID: siteID, Timestamp: ts, Status: status}
}

func mustSchedule(t *testing.T, tz string, rules []models.BusinessHoursRule) *services.Schedule {
	t.Helper()
	sched, err := services.NewSchedule(tz, rules)
	require.NoError(t, err)
	return sched
}

func TestExtrapolateWorkedExample(t *testing.T) {
	// Mon-Fri 09:00-17:00 UTC; polls Monday 10:00 active, 14:00 inactive.
	// Over [08:00, 18:00): 09:00-10:00 has no signal and counts for
	// neither side, 10:00-14:00 is up, 14:00-17:00 is down.
	rules := weekdayRules()
	snap := store.NewSnapshot([]models.Observation{
		obs("site-1", jan23.Add(10*time.Hour), models.StatusActive),
		obs("site-1", jan23.Add(14*time.Hour), models.StatusInactive),
	}, rules, nil)
	sched := mustSchedule(t, "UTC", rules)

	up, down := services.Extrapolate(snap, sched, "site-1", jan23.Add(8*time.Hour), jan23.Add(18*time.Hour))
	require.Equal(t, int64(4*3600), up)
	require.Equal(t, int64(3*3600), down)
}

func TestExtrapolateCarriesStatusFromBeforeWindow(t *testing.T) {
	// Last poll before the window was active, so the stretch up to the
	// first in-window poll counts as up.
	snap := store.NewSnapshot([]models.Observation{
		obs("site-1", jan23.Add(-4*time.Hour), models.StatusActive),
		obs("site-1", jan23.Add(3*time.Hour), models.StatusInactive),
	}, nil, nil)
	sched := mustSchedule(t, "UTC", nil)

	up, down := services.Extrapolate(snap, sched, "site-1", jan23, jan23.Add(6*time.Hour))
	require.Equal(t, int64(3*3600), up)
	require.Equal(t, int64(3*3600), down)
}

func TestExtrapolateHalfOpenBoundaries(t *testing.T) {
	// A poll exactly at the window start governs from that instant; one
	// exactly at the window end is outside the window.
	snap := store.NewSnapshot([]models.Observation{
		obs("site-1", jan23, models.StatusInactive),
		obs("site-1", jan23.Add(6*time.Hour), models.StatusActive),
	}, nil, nil)
	sched := mustSchedule(t, "UTC", nil)

	up, down := services.Extrapolate(snap, sched, "site-1", jan23, jan23.Add(6*time.Hour))
	require.Equal(t, int64(0), up)
	require.Equal(t, int64(6*3600), down)
}

func TestExtrapolateNoObservationsYieldsZero(t *testing.T) {
	snap := store.NewSnapshot(nil, nil, map[string]string{"site-1": "UTC"})
	sched := mustSchedule(t, "UTC", nil)

	up, down := services.Extrapolate(snap, sched, "site-1", jan23, jan23.Add(24*time.Hour))
	require.Zero(t, up)
	require.Zero(t, down)
}

func TestExtrapolateUnknownStatusExcluded(t *testing.T) {
	// A poll with an unrecognized status opens an unknown stretch that
	// counts for neither total.
	snap := store.NewSnapshot([]models.Observation{
		obs("site-1", jan23, models.StatusActive),
		obs("site-1", jan23.Add(2*time.Hour), models.StatusUnknown),
		obs("site-1", jan23.Add(4*time.Hour), models.StatusInactive),
	}, nil, nil)
	sched := mustSchedule(t, "UTC", nil)

	up, down := services.Extrapolate(snap, sched, "site-1", jan23, jan23.Add(6*time.Hour))
	require.Equal(t, int64(2*3600), up)
	require.Equal(t, int64(2*3600), down)
}

func TestExtrapolateCoveredWindowSumsToOpenDuration(t *testing.T) {
	// With signal covering every open instant, up + down equals the
	// business-open duration exactly.
	rules := []models.BusinessHoursRule{rule(0, "09:00", "17:00")}
	snap := store.NewSnapshot([]models.Observation{
		obs("site-1", jan23.Add(-30*time.Minute), models.StatusActive),
		obs("site-1", jan23.Add(11*time.Hour), models.StatusInactive),
		obs("site-1", jan23.Add(13*time.Hour), models.StatusActive),
	}, rules, nil)
	sched := mustSchedule(t, "UTC", rules)

	start, end := jan23, jan23.Add(24*time.Hour)
	up, down := services.Extrapolate(snap, sched, "site-1", start, end)

	var open int64
	for _, iv := range sched.OpenIntervals(start, end) {
		open += int64(iv.Duration() / time.Second)
	}
	require.Equal(t, int64(8*3600), open)
	require.Equal(t, open, up+down)
	require.Equal(t, int64(6*3600), up)   // 09:00-11:00 and 13:00-17:00
	require.Equal(t, int64(2*3600), down) // 11:00-13:00
}

func TestExtrapolateEmptyWindow(t *testing.T) {
	snap := store.NewSnapshot([]models.Observation{
		obs("site-1", jan23, models.StatusActive),
	}, nil, nil)
	sched := mustSchedule(t, "UTC", nil)

	up, down := services.Extrapolate(snap, sched, "site-1", jan23, jan23)
	require.Zero(t, up)
	require.Zero(t, down)
}
