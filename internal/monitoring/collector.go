package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cafe-sync/internal/model"
	"github.com/sells-group/cafe-sync/internal/store"
)

// maxRunsScanned bounds how many sync_log rows one snapshot reads.
const maxRunsScanned = 1000

// MetricsSnapshot holds a point-in-time view of sync health for one pipeline.
type MetricsSnapshot struct {
	Pipeline string `json:"pipeline"`

	// Run metrics (within lookback window).
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`
	Inserted     int     `json:"inserted"`
	Skipped      int     `json:"skipped"`

	// LastRunStatus is the status of the newest run in the window, if any.
	LastRunStatus model.RunStatus `json:"last_run_status,omitempty"`
	LastRunError  string          `json:"last_run_error,omitempty"`

	LastSuccess *time.Time `json:"last_success,omitempty"`
	// HoursSinceSuccess is -1 when the pipeline never completed.
	HoursSinceSuccess float64 `json:"hours_since_success"`

	Cafes int `json:"cafes"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunSource is the subset of store.Store the collector reads.
type RunSource interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
	LastSuccess(ctx context.Context, pipeline string) (*time.Time, error)
	CountCafes(ctx context.Context) (int, error)
}

// Collector gathers sync metrics from the run log.
type Collector struct {
	source   RunSource
	pipeline string
	now      func() time.Time
}

// NewCollector creates a new metrics collector for the named pipeline.
func NewCollector(source RunSource, pipeline string) *Collector {
	return &Collector{source: source, pipeline: pipeline, now: time.Now}
}

// Collect gathers a snapshot of sync metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		Pipeline:          c.pipeline,
		HoursSinceSuccess: -1,
		LookbackHours:     lookbackHours,
		CollectedAt:       now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	// Runs come back newest first.
	runs, err := c.source.ListRuns(ctx, store.RunFilter{
		Pipeline: c.pipeline,
		Limit:    maxRunsScanned,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.StartedAt.Before(cutoff) {
			continue
		}
		if snap.RunsTotal == 0 {
			snap.LastRunStatus = r.Status
			snap.LastRunError = r.Error
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			snap.Inserted += r.Inserted
			snap.Skipped += r.Skipped
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}

	last, err := c.source.LastSuccess(ctx, c.pipeline)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: last success")
	}
	if last != nil {
		snap.LastSuccess = last
		snap.HoursSinceSuccess = now.Sub(*last).Hours()
	}

	cafes, err := c.source.CountCafes(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count cafes")
	}
	snap.Cafes = cafes

	return snap, nil
}
