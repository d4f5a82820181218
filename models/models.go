package models

import (
	"time"
)

// DefaultTimezone is assumed for any site without a site_timezones row.
const DefaultTimezone = "America/Chicago"

// Status is the three-way poll status of a site at an instant. Unknown
// covers stretches with no signal as well as unrecognized stored values;
// it is kept distinct from Inactive so that absence of data is never
// counted as downtime (or uptime).
type Status int

const (
	StatusUnknown Status = iota
	StatusActive
	StatusInactive
)

// ParseStatus maps a stored status string to a Status. Anything other
// than "active" or "inactive" is Unknown.
func ParseStatus(s string) Status {
	switch s {
	case "active":
		return StatusActive
	case "inactive":
		return StatusInactive
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Observation is one point-in-time poll of a site.
type Observation struct {
	SiteID    string
	Timestamp time.Time // UTC
	Status    Status
}

// BusinessHoursRule is one weekly recurring local-time open window.
// DayOfWeek runs 0=Monday through 6=Sunday. Times are local wall-clock
// strings, "HH:MM" or "HH:MM:SS". A rule never spans into the next
// calendar day; end <= start is a zero-length no-op window.
type BusinessHoursRule struct {
	SiteID     string
	DayOfWeek  int
	StartLocal string
	EndLocal   string
}

// Interval is a half-open UTC interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns End minus Start.
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// ReportState is the lifecycle state of a report job. Complete and
// Failed are terminal; a job row is never mutated again once it
// reaches either.
type ReportState string

const (
	ReportRunning  ReportState = "Running"
	ReportComplete ReportState = "Complete"
	ReportFailed   ReportState = "Failed"
)

// ReportJob tracks one asynchronous report run.
type ReportJob struct {
	ReportID    string
	State       ReportState
	FilePath    string // artifact location, set once Complete
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ReportRow is the per-site aggregation result. Durations are whole
// seconds of business-open time; conversion to minutes/hours happens
// only at the formatting boundary. Unknown marks a site whose schedule
// or timezone data was unusable.
type ReportRow struct {
	SiteID           string
	UptimeHourSecs   int64
	DowntimeHourSecs int64
	UptimeDaySecs    int64
	DowntimeDaySecs  int64
	UptimeWeekSecs   int64
	DowntimeWeekSecs int64
	Unknown          bool
}

// OverviewStats are the read-only dataset and job counters served by
// the stats endpoint.
type OverviewStats struct {
	TotalSites        int        `json:"total_sites"`
	TotalObservations int        `json:"total_observations"`
	LatestObservation *time.Time `json:"latest_observation"`
	ReportsRunning    int        `json:"reports_running"`
	ReportsComplete   int        `json:"reports_complete"`
	ReportsFailed     int        `json:"reports_failed"`
}
