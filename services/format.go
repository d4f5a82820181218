package services

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"sitemonitor/models"
)

// reportColumns is the artifact header. Hour-window durations are
// reported in minutes, day and week windows in hours.
var reportColumns = []string{
	"site_id",
	"uptime_last_hour_minutes",
	"downtime_last_hour_minutes",
	"uptime_last_day_hours",
	"downtime_last_day_hours",
	"uptime_last_week_hours",
	"downtime_last_week_hours",
}

// FormatCSV renders report rows as the CSV artifact: header line, then
// one line per row in the given order, every line newline-terminated.
// Numeric fields carry exactly two decimals; rows marked Unknown render
// the literal "unknown" in all six of them. Output is byte-identical
// for identical input.
func FormatCSV(rows []models.ReportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportColumns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		var record []string
		if row.Unknown {
			record = []string{row.SiteID, "unknown", "unknown", "unknown", "unknown", "unknown", "unknown"}
		} else {
			record = []string{
				row.SiteID,
				minutes(row.UptimeHourSecs),
				minutes(row.DowntimeHourSecs),
				hours(row.UptimeDaySecs),
				hours(row.DowntimeDaySecs),
				hours(row.UptimeWeekSecs),
				hours(row.DowntimeWeekSecs),
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minutes(secs int64) string { return fixed2(secs, 60) }

func hours(secs int64) string { return fixed2(secs, 3600) }

// fixed2 renders secs/perUnit with two decimals, rounding half up, in
// pure integer arithmetic so identical inputs always render identically.
func fixed2(secs, perUnit int64) string {
	hundredths := (secs*200 + perUnit) / (2 * perUnit)
	return fmt.Sprintf("%d.%02d", hundredths/100, hundredths%100)
}
