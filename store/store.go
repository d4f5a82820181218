// Package store owns read access to the monitoring dataset and the
// lifecycle rows of report jobs. Report generation never reads the live
// tables directly; it works off an immutable Snapshot so one run never
// mixes stale and fresh data.
package store

import (
	"context"
	"time"

	"github.com/zeebo/errs"

	"sitemonitor/models"
)

var (
	// Error is the class for infrastructure-level store failures
	// (unreachable database, broken scan). These fail the whole job.
	Error = errs.Class("store error")

	// ErrNotFound marks lookups of report ids that do not exist. It is
	// a client error, distinct from a Failed report.
	ErrNotFound = errs.Class("report not found")
)

// Store is the persistence contract needed by the report pipeline.
type Store interface {
	// LoadSnapshot reads a consistent view of observations, business
	// hours and timezones. The returned snapshot is immutable and safe
	// for concurrent readers.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// CreateReport inserts a fresh job row in Running state.
	CreateReport(ctx context.Context, reportID string, createdAt time.Time) error

	// GetReport returns the job row, or ErrNotFound for an unknown id.
	GetReport(ctx context.Context, reportID string) (*models.ReportJob, error)

	// CompleteReport transitions Running -> Complete and records the
	// artifact path. It refuses to touch a job that is not Running.
	CompleteReport(ctx context.Context, reportID, filePath string, completedAt time.Time) error

	// FailReport transitions Running -> Failed. Terminal states are
	// immutable, same guard as CompleteReport.
	FailReport(ctx context.Context, reportID string, completedAt time.Time) error

	// Overview returns read-only dataset and job counters.
	Overview(ctx context.Context) (*models.OverviewStats, error)

	// PurgeReportsBefore deletes terminal jobs created before cutoff and
	// returns how many rows went away plus the artifact paths they held.
	// Running jobs are never purged.
	PurgeReportsBefore(ctx context.Context, cutoff time.Time) (removed int, filePaths []string, err error)
}
