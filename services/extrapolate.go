package services

import (
	"time"

	"sitemonitor/models"
	"sitemonitor/store"
)

// statusSpan is one stretch of [start, end) during which a single
// status was in force.
type statusSpan struct {
	start  time.Time
	end    time.Time
	status models.Status
}

// Extrapolate computes how many seconds of [start, end) the site spent
// active and inactive, counting only instants inside business hours.
//
// The status in force at any instant is the status of the latest
// observation at or before it; the stretch before the first in-window
// observation takes the last observation before start. With no signal
// at all a stretch is unknown and contributes to neither total, so
// up + down never exceeds the business-open length of the window.
// Intervals are half-open throughout: an observation exactly at start
// counts, one exactly at end does not.
func Extrapolate(snap *store.Snapshot, sched *Schedule, siteID string, start, end time.Time) (upSeconds, downSeconds int64) {
	if !start.Before(end) {
		return 0, 0
	}

	spans := statusSpans(snap, siteID, start, end)
	open := sched.OpenIntervals(start, end)

	// Sweep the two sorted disjoint sequences and sum the overlaps.
	var up, down time.Duration
	i, j := 0, 0
	for i < len(spans) && j < len(open) {
		from := spans[i].start
		if open[j].Start.After(from) {
			from = open[j].Start
		}
		to := spans[i].end
		if open[j].End.Before(to) {
			to = open[j].End
		}
		if from.Before(to) {
			switch spans[i].status {
			case models.StatusActive:
				up += to.Sub(from)
			case models.StatusInactive:
				down += to.Sub(from)
			}
		}
		if spans[i].end.After(open[j].End) {
			j++
		} else {
			i++
		}
	}
	return int64(up / time.Second), int64(down / time.Second)
}

// statusSpans builds the piecewise-constant status timeline covering
// [start, end) exactly once, unknown stretches included.
func statusSpans(snap *store.Snapshot, siteID string, start, end time.Time) []statusSpan {
	current := models.StatusUnknown
	if prior, ok := snap.LastBefore(siteID, start); ok {
		current = prior.Status
	}

	var spans []statusSpan
	cursor := start
	for _, o := range snap.ObservationsIn(siteID, start, end) {
		if o.Timestamp.After(cursor) {
			spans = append(spans, statusSpan{start: cursor, end: o.Timestamp, status: current})
			cursor = o.Timestamp
		}
		current = o.Status
	}
	if cursor.Before(end) {
		spans = append(spans, statusSpan{start: cursor, end: end, status: current})
	}
	return spans
}
