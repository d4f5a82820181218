package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitemonitor/config"
	"sitemonitor/models"
	"sitemonitor/store"
)

// Reports owns the report job lifecycle: trigger allocates an id and a
// Running row and returns immediately, a background goroutine runs the
// aggregation pipeline against its own dataset snapshot, and the row
// moves to Complete or Failed exactly once. Only that goroutine ever
// mutates its job; concurrent triggers are fully independent runs.
type Reports struct {
	log      *zap.Logger
	store    store.Store
	dir      string
	workers  int
	notifier *Notifier
}

// NewReports wires the job manager. notifier may be nil to disable
// failure notifications.
func NewReports(log *zap.Logger, st store.Store, cfg config.Config, notifier *Notifier) *Reports {
	return &Reports{
		log:      log,
		store:    st,
		dir:      cfg.ReportsDir,
		workers:  cfg.AggregateWorkers,
		notifier: notifier,
	}
}

// Trigger creates a Running job, starts exactly one background
// generation for it and returns its id without waiting.
func (r *Reports) Trigger(ctx context.Context) (string, error) {
	reportID := uuid.New().String()
	if err := r.store.CreateReport(ctx, reportID, time.Now().UTC()); err != nil {
		return "", err
	}
	r.log.Info("report triggered", zap.String("report_id", reportID))

	go r.generate(reportID)
	return reportID, nil
}

// Get returns the job's current state. It never blocks on the
// background run; it only reads the job row.
func (r *Reports) Get(ctx context.Context, reportID string) (*models.ReportJob, error) {
	return r.store.GetReport(ctx, reportID)
}

// generate runs the snapshot -> aggregate -> format -> store pipeline
// for one report. Callers' request contexts deliberately do not reach
// here: a triggered job runs to completion or failure on its own.
// Every failure path lands in fail(), so a job can never stay Running.
func (r *Reports) generate(reportID string) {
	ctx := context.Background()
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(ctx, reportID, fmt.Errorf("report generation panic: %v", rec))
		}
	}()

	started := time.Now()
	snap, err := r.store.LoadSnapshot(ctx)
	if err != nil {
		r.fail(ctx, reportID, err)
		return
	}

	rows, err := BuildRows(ctx, r.log, snap, r.workers)
	if err != nil {
		r.fail(ctx, reportID, err)
		return
	}

	artifact, err := FormatCSV(rows)
	if err != nil {
		r.fail(ctx, reportID, err)
		return
	}

	path := filepath.Join(r.dir, "report_"+reportID+".csv")
	if err := os.WriteFile(path, artifact, 0o644); err != nil {
		r.fail(ctx, reportID, err)
		return
	}

	if err := r.store.CompleteReport(ctx, reportID, path, time.Now().UTC()); err != nil {
		r.log.Error("failed to mark report complete",
			zap.String("report_id", reportID),
			zap.Error(err),
		)
		// The artifact is unreachable without a Complete row.
		_ = os.Remove(path)
		r.fail(ctx, reportID, err)
		return
	}
	r.log.Info("report complete",
		zap.String("report_id", reportID),
		zap.Int("sites", len(rows)),
		zap.Duration("took", time.Since(started)),
	)
}

func (r *Reports) fail(ctx context.Context, reportID string, cause error) {
	r.log.Error("report failed",
		zap.String("report_id", reportID),
		zap.Error(cause),
	)
	if err := r.store.FailReport(ctx, reportID, time.Now().UTC()); err != nil {
		r.log.Error("failed to mark report failed",
			zap.String("report_id", reportID),
			zap.Error(err),
		)
	}
	if r.notifier != nil {
		// Fire-and-forget; notifications never hold up or fail the job path.
		go r.notifier.ReportFailed(reportID, cause)
	}
}
