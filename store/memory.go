package store

import (
	"context"
	"sync"
	"time"

	"sitemonitor/models"
)

// Memory is a thread-safe in-memory Store used by tests. It applies the
// same lifecycle guards as the Postgres implementation, and can be told
// to fail snapshot loads to exercise the job failure path.
type Memory struct {
	mu           sync.RWMutex
	observations []models.Observation
	rules        []models.BusinessHoursRule
	timezones    map[string]string
	reports      map[string]*models.ReportJob
	loadErr      error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		timezones: make(map[string]string),
		reports:   make(map[string]*models.ReportJob),
	}
}

// AddObservation seeds one status poll.
func (m *Memory) AddObservation(siteID string, ts time.Time, status models.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, models.Observation{
		SiteID:    siteID,
		Timestamp: ts,
		Status:    status,
	})
}

// AddRule seeds one business-hours rule.
func (m *Memory) AddRule(rule models.BusinessHoursRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
}

// SetTimezone seeds a site timezone entry.
func (m *Memory) SetTimezone(siteID, tz string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timezones[siteID] = tz
}

// SetLoadError makes every subsequent LoadSnapshot fail with err.
func (m *Memory) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// LoadSnapshot copies the seeded rows into an immutable Snapshot.
func (m *Memory) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, Error.Wrap(m.loadErr)
	}
	observations := append([]models.Observation(nil), m.observations...)
	rules := append([]models.BusinessHoursRule(nil), m.rules...)
	timezones := make(map[string]string, len(m.timezones))
	for siteID, tz := range m.timezones {
		timezones[siteID] = tz
	}
	return NewSnapshot(observations, rules, timezones), nil
}

// CreateReport inserts a fresh Running job row.
func (m *Memory) CreateReport(ctx context.Context, reportID string, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[reportID]; exists {
		return Error.New("report %s already exists", reportID)
	}
	m.reports[reportID] = &models.ReportJob{
		ReportID:  reportID,
		State:     models.ReportRunning,
		CreatedAt: createdAt.UTC(),
	}
	return nil
}

// GetReport returns a copy of the job row, or ErrNotFound.
func (m *Memory) GetReport(ctx context.Context, reportID string) (*models.ReportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.reports[reportID]
	if !ok {
		return nil, ErrNotFound.New("%s", reportID)
	}
	out := *job
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	return &out, nil
}

// CompleteReport marks a Running job Complete.
func (m *Memory) CompleteReport(ctx context.Context, reportID, filePath string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.reports[reportID]
	if !ok || job.State != models.ReportRunning {
		return Error.New("report %s is not running", reportID)
	}
	t := completedAt.UTC()
	job.State = models.ReportComplete
	job.FilePath = filePath
	job.CompletedAt = &t
	return nil
}

// FailReport marks a Running job Failed.
func (m *Memory) FailReport(ctx context.Context, reportID string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.reports[reportID]
	if !ok || job.State != models.ReportRunning {
		return Error.New("report %s is not running", reportID)
	}
	t := completedAt.UTC()
	job.State = models.ReportFailed
	job.CompletedAt = &t
	return nil
}

// Overview computes the same counters the Postgres implementation reads
// with SQL.
func (m *Memory) Overview(ctx context.Context) (*models.OverviewStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.OverviewStats{
		TotalObservations: len(m.observations),
	}
	sites := make(map[string]struct{})
	var latest time.Time
	for _, o := range m.observations {
		sites[o.SiteID] = struct{}{}
		if o.Timestamp.After(latest) {
			latest = o.Timestamp
		}
	}
	for _, r := range m.rules {
		sites[r.SiteID] = struct{}{}
	}
	for siteID := range m.timezones {
		sites[siteID] = struct{}{}
	}
	stats.TotalSites = len(sites)
	if !latest.IsZero() {
		t := latest.UTC()
		stats.LatestObservation = &t
	}
	for _, job := range m.reports {
		switch job.State {
		case models.ReportRunning:
			stats.ReportsRunning++
		case models.ReportComplete:
			stats.ReportsComplete++
		case models.ReportFailed:
			stats.ReportsFailed++
		}
	}
	return stats, nil
}

// PurgeReportsBefore deletes terminal jobs created before cutoff.
func (m *Memory) PurgeReportsBefore(ctx context.Context, cutoff time.Time) (int, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	var paths []string
	for reportID, job := range m.reports {
		if job.State == models.ReportRunning || !job.CreatedAt.Before(cutoff) {
			continue
		}
		delete(m.reports, reportID)
		removed++
		if job.FilePath != "" {
			paths = append(paths, job.FilePath)
		}
	}
	return removed, paths, nil
}
