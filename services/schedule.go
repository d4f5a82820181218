package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/errs"

	"sitemonitor/models"
)

// ErrSiteData marks malformed schedule or timezone data for a single
// site. It fails that site's report row, never the whole job.
var ErrSiteData = errs.Class("site data error")

const fullDaySeconds = 24 * 60 * 60

// localWindow is a merged open window within one local calendar day,
// in seconds since local midnight. end may be 86400 (local 24:00).
type localWindow struct {
	start int
	end   int
}

// Schedule is a site's compiled weekly business-hours table. Compiling
// once per site lets the three report windows share the parsed rules.
//
// Days with no rules at all are fully open; that makes a site with zero
// rules open 24/7. A day whose only rules are zero-length no-ops is
// closed: it has rules, they just cover nothing.
type Schedule struct {
	loc  *time.Location
	days [7][]localWindow // indexed 0=Monday .. 6=Sunday
}

// NewSchedule compiles a site's timezone and rules. Unresolvable
// timezone names, out-of-range weekdays and unparseable time strings
// all come back as ErrSiteData.
func NewSchedule(timezone string, rules []models.BusinessHoursRule) (*Schedule, error) {
	if timezone == "" {
		timezone = models.DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, ErrSiteData.New("unknown timezone %q", timezone)
	}

	var (
		hasRules [7]bool
		raw      [7][]localWindow
	)
	for _, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return nil, ErrSiteData.New("day_of_week %d out of range", r.DayOfWeek)
		}
		start, err := parseLocalTime(r.StartLocal)
		if err != nil {
			return nil, ErrSiteData.New("bad start time %q: %v", r.StartLocal, err)
		}
		end, err := parseLocalTime(r.EndLocal)
		if err != nil {
			return nil, ErrSiteData.New("bad end time %q: %v", r.EndLocal, err)
		}
		hasRules[r.DayOfWeek] = true
		if end <= start {
			// zero or negative length, a no-op window
			continue
		}
		raw[r.DayOfWeek] = append(raw[r.DayOfWeek], localWindow{start: start, end: end})
	}

	s := &Schedule{loc: loc}
	for day := 0; day < 7; day++ {
		if !hasRules[day] {
			s.days[day] = []localWindow{{start: 0, end: fullDaySeconds}}
			continue
		}
		s.days[day] = mergeWindows(raw[day])
	}
	return s, nil
}

// OpenIntervals returns the business-open portions of [start, end) as
// disjoint, maximal UTC intervals in ascending order. It walks every
// local calendar day the request touches, materializes each open window
// at its wall-clock time in the site's location (so daylight-saving
// days keep their real UTC extent) and clips to the request.
func (s *Schedule) OpenIntervals(start, end time.Time) []models.Interval {
	if !start.Before(end) {
		return nil
	}

	var out []models.Interval
	year, month, day := start.In(s.loc).Date()
	for {
		dayStart := time.Date(year, month, day, 0, 0, 0, 0, s.loc)
		if !dayStart.Before(end) {
			break
		}
		for _, w := range s.days[weekdayIndex(dayStart.Weekday())] {
			ws := time.Date(year, month, day, 0, 0, w.start, 0, s.loc)
			we := time.Date(year, month, day, 0, 0, w.end, 0, s.loc)
			if ws.Before(start) {
				ws = start
			}
			if we.After(end) {
				we = end
			}
			if ws.Before(we) {
				out = append(out, models.Interval{Start: ws.UTC(), End: we.UTC()})
			}
		}
		day++ // time.Date normalizes month and year rollover
	}
	return coalesce(out)
}

// weekdayIndex maps Go's Sunday-based weekday onto the stored
// 0=Monday convention.
func weekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// mergeWindows unions overlapping or touching windows of one day.
func mergeWindows(ws []localWindow) []localWindow {
	if len(ws) < 2 {
		return ws
	}
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].start != ws[j].start {
			return ws[i].start < ws[j].start
		}
		return ws[i].end < ws[j].end
	})
	merged := ws[:1]
	for _, w := range ws[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end {
			if w.end > last.end {
				last.end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// coalesce joins intervals that touch exactly, so day boundaries inside
// a continuously-open stretch do not split the result. Input must be
// sorted and non-overlapping, which the day walk guarantees.
func coalesce(ivs []models.Interval) []models.Interval {
	if len(ivs) < 2 {
		return ivs
	}
	out := ivs[:1]
	for _, iv := range ivs[1:] {
		last := &out[len(out)-1]
		if iv.Start.Equal(last.End) {
			last.End = iv.End
			continue
		}
		out = append(out, iv)
	}
	return out
}

// parseLocalTime parses "HH:MM" or "HH:MM:SS" into seconds since local
// midnight. "24:00" and "24:00:00" are accepted as end-of-day.
func parseLocalTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, errs.New("want HH:MM or HH:MM:SS")
	}
	fields := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, errs.New("non-numeric field %q", part)
		}
		fields[i] = n
	}
	h, m, sec := fields[0], fields[1], fields[2]
	if h < 0 || h > 24 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, errs.New("field out of range")
	}
	total := h*3600 + m*60 + sec
	if total > fullDaySeconds {
		return 0, errs.New("time past 24:00")
	}
	return total, nil
}
