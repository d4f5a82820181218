package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sitemonitor/models"
	"sitemonitor/store"
)

const (
	windowHour = time.Hour
	windowDay  = 24 * time.Hour
	windowWeek = 7 * 24 * time.Hour
)

// BuildRows runs the extrapolation engine for every site in the
// snapshot over the three trailing windows and returns one row per
// site, ascending by site id. All windows end at the snapshot anchor,
// the latest observation timestamp in the dataset, so every site in a
// report shares one temporal reference.
//
// Sites are independent, so rows are computed in parallel up to the
// worker limit; each goroutine writes only its own slice slot, which
// keeps the output order deterministic regardless of completion order.
func BuildRows(ctx context.Context, log *zap.Logger, snap *store.Snapshot, workers int) ([]models.ReportRow, error) {
	if workers < 1 {
		workers = 1
	}
	anchor := snap.Anchor()
	siteIDs := snap.SiteIDs()
	rows := make([]models.ReportRow, len(siteIDs))

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, siteID := range siteIDs {
		group.Go(func() error {
			rows[i] = buildSiteRow(log, snap, siteID, anchor)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	log.Debug("aggregated report rows",
		zap.Int("sites", len(rows)),
		zap.Time("anchor", anchor),
	)
	return rows, nil
}

// buildSiteRow computes one site's row. Malformed schedule or timezone
// data fails only this row: it comes back marked Unknown and the rest
// of the report is unaffected.
func buildSiteRow(log *zap.Logger, snap *store.Snapshot, siteID string, anchor time.Time) models.ReportRow {
	row := models.ReportRow{SiteID: siteID}

	sched, err := NewSchedule(snap.Timezone(siteID), snap.Rules(siteID))
	if err != nil {
		log.Warn("site schedule unusable, emitting unknown row",
			zap.String("site_id", siteID),
			zap.Error(err),
		)
		row.Unknown = true
		return row
	}

	row.UptimeHourSecs, row.DowntimeHourSecs = Extrapolate(snap, sched, siteID, anchor.Add(-windowHour), anchor)
	row.UptimeDaySecs, row.DowntimeDaySecs = Extrapolate(snap, sched, siteID, anchor.Add(-windowDay), anchor)
	row.UptimeWeekSecs, row.DowntimeWeekSecs = Extrapolate(snap, sched, siteID, anchor.Add(-windowWeek), anchor)
	return row
}
