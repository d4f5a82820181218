package store

import (
	"context"
	"database/sql"
	"time"

	"sitemonitor/models"
)

// Postgres implements Store on top of database/sql with the lib/pq
// driver. Dataset reads happen inside a repeatable-read read-only
// transaction so a snapshot never mixes rows from different ingestion
// batches.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an already-opened database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// LoadSnapshot copies observations, business hours and timezones into an
// immutable Snapshot under one repeatable-read transaction.
func (p *Postgres) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	observations, err := loadObservations(ctx, tx)
	if err != nil {
		return nil, err
	}
	rules, err := loadBusinessHours(ctx, tx)
	if err != nil {
		return nil, err
	}
	timezones, err := loadTimezones(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, Error.Wrap(err)
	}
	return NewSnapshot(observations, rules, timezones), nil
}

func loadObservations(ctx context.Context, tx *sql.Tx) ([]models.Observation, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT site_id, timestamp_utc, status
		FROM observations
	`)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		var (
			o      models.Observation
			status string
		)
		if err := rows.Scan(&o.SiteID, &o.Timestamp, &status); err != nil {
			return nil, Error.Wrap(err)
		}
		o.Status = models.ParseStatus(status)
		out = append(out, o)
	}
	return out, Error.Wrap(rows.Err())
}

func loadBusinessHours(ctx context.Context, tx *sql.Tx) ([]models.BusinessHoursRule, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT site_id, day_of_week, start_time_local, end_time_local
		FROM business_hours
	`)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()

	var out []models.BusinessHoursRule
	for rows.Next() {
		var r models.BusinessHoursRule
		if err := rows.Scan(&r.SiteID, &r.DayOfWeek, &r.StartLocal, &r.EndLocal); err != nil {
			return nil, Error.Wrap(err)
		}
		out = append(out, r)
	}
	return out, Error.Wrap(rows.Err())
}

func loadTimezones(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT site_id, timezone
		FROM site_timezones
	`)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var siteID, tz string
		if err := rows.Scan(&siteID, &tz); err != nil {
			return nil, Error.Wrap(err)
		}
		out[siteID] = tz
	}
	return out, Error.Wrap(rows.Err())
}

// CreateReport inserts a fresh Running job row.
func (p *Postgres) CreateReport(ctx context.Context, reportID string, createdAt time.Time) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO reports (report_id, status, created_at)
		VALUES ($1, $2, $3)
	`, reportID, string(models.ReportRunning), createdAt)
	return Error.Wrap(err)
}

// GetReport returns the job row, or ErrNotFound for an unknown id.
func (p *Postgres) GetReport(ctx context.Context, reportID string) (*models.ReportJob, error) {
	var (
		job         models.ReportJob
		state       string
		filePath    sql.NullString
		completedAt sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT report_id, status, file_path, created_at, completed_at
		FROM reports
		WHERE report_id = $1
	`, reportID).Scan(&job.ReportID, &state, &filePath, &job.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound.New("%s", reportID)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	job.State = models.ReportState(state)
	job.FilePath = filePath.String
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}
	job.CreatedAt = job.CreatedAt.UTC()
	return &job, nil
}

// CompleteReport marks a Running job Complete and records its artifact.
// The status guard in the WHERE clause keeps terminal rows immutable.
func (p *Postgres) CompleteReport(ctx context.Context, reportID, filePath string, completedAt time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE reports
		SET status = $2, file_path = $3, completed_at = $4
		WHERE report_id = $1 AND status = $5
	`, reportID, string(models.ReportComplete), filePath, completedAt, string(models.ReportRunning))
	if err != nil {
		return Error.Wrap(err)
	}
	return requireTransition(res, reportID)
}

// FailReport marks a Running job Failed, same terminal-state guard as
// CompleteReport.
func (p *Postgres) FailReport(ctx context.Context, reportID string, completedAt time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE reports
		SET status = $2, completed_at = $3
		WHERE report_id = $1 AND status = $4
	`, reportID, string(models.ReportFailed), completedAt, string(models.ReportRunning))
	if err != nil {
		return Error.Wrap(err)
	}
	return requireTransition(res, reportID)
}

func requireTransition(res sql.Result, reportID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return Error.Wrap(err)
	}
	if affected == 0 {
		return Error.New("report %s is not running", reportID)
	}
	return nil
}

// Overview computes the dataset and job counters for the stats endpoint.
func (p *Postgres) Overview(ctx context.Context) (*models.OverviewStats, error) {
	var stats models.OverviewStats

	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT site_id FROM observations
			UNION
			SELECT site_id FROM business_hours
			UNION
			SELECT site_id FROM site_timezones
		) AS sites
	`).Scan(&stats.TotalSites)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var latest sql.NullTime
	err = p.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(timestamp_utc) FROM observations
	`).Scan(&stats.TotalObservations, &latest)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if latest.Valid {
		t := latest.Time.UTC()
		stats.LatestObservation = &t
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM reports GROUP BY status
	`)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, Error.Wrap(err)
		}
		switch models.ReportState(state) {
		case models.ReportRunning:
			stats.ReportsRunning = count
		case models.ReportComplete:
			stats.ReportsComplete = count
		case models.ReportFailed:
			stats.ReportsFailed = count
		}
	}
	return &stats, Error.Wrap(rows.Err())
}

// PurgeReportsBefore deletes terminal jobs created before cutoff in one
// statement and reports the artifact paths the deleted rows referenced.
func (p *Postgres) PurgeReportsBefore(ctx context.Context, cutoff time.Time) (int, []string, error) {
	rows, err := p.db.QueryContext(ctx, `
		DELETE FROM reports
		WHERE status IN ($1, $2) AND created_at < $3
		RETURNING file_path
	`, string(models.ReportComplete), string(models.ReportFailed), cutoff)
	if err != nil {
		return 0, nil, Error.Wrap(err)
	}
	defer rows.Close()

	removed := 0
	var paths []string
	for rows.Next() {
		var filePath sql.NullString
		if err := rows.Scan(&filePath); err != nil {
			return removed, paths, Error.Wrap(err)
		}
		removed++
		if filePath.Valid && filePath.String != "" {
			paths = append(paths, filePath.String)
		}
	}
	return removed, paths, Error.Wrap(rows.Err())
}
