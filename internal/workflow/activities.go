// Package workflow runs the café sync on Temporal: run log activities, extract
// and load activities, one workflow and a daily schedule.
package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/model"
	"github.com/sells-group/cafe-sync/internal/pipeline"
	"github.com/sells-group/cafe-sync/internal/store"
)

// Activities holds the dependencies of the sync activities.
type Activities struct {
	extractor pipeline.Extractor
	store     store.Store
	name      string
	area      string
}

// NewActivities creates the activity set. name keys the run log.
func NewActivities(ex pipeline.Extractor, st store.Store, name, area string) *Activities {
	return &Activities{extractor: ex, store: st, name: name, area: area}
}

// StartSyncRun ensures the schema and opens the run log row shared by the
// remaining activities of one workflow execution.
func (a *Activities) StartSyncRun(ctx context.Context) (string, error) {
	if err := a.store.EnsureSchema(ctx); err != nil {
		return "", eris.Wrap(err, "workflow: ensure schema")
	}

	run, err := a.store.StartRun(ctx, a.name)
	if err != nil {
		return "", eris.Wrapf(err, "workflow: start run for %s", a.name)
	}
	zap.L().Info("run started",
		zap.String("component", "workflow"),
		zap.String("pipeline", a.name),
		zap.String("run_id", run.ID),
	)
	return run.ID, nil
}

// ExtractCafes queries Overpass and returns the batch.
func (a *Activities) ExtractCafes(ctx context.Context) ([]model.Cafe, error) {
	return pipeline.Extract(ctx, a.extractor)
}

// LoadCafes inserts the batch and completes run runID. A retried attempt
// skips the rows an earlier attempt already inserted.
func (a *Activities) LoadCafes(ctx context.Context, runID string, cafes []model.Cafe) (*store.LoadResult, error) {
	res, err := pipeline.Load(ctx, a.store, cafes)
	if err != nil {
		return nil, err
	}

	if err := a.store.CompleteRun(ctx, runID, &model.RunResult{
		Extracted: len(cafes),
		Inserted:  res.Inserted,
		Skipped:   res.Skipped,
		Metadata:  pipeline.RunMetadata(a.area, cafes, res),
	}); err != nil {
		return nil, eris.Wrapf(err, "workflow: complete run %s", runID)
	}
	return res, nil
}

// FailSyncRun marks run runID failed with errMsg.
func (a *Activities) FailSyncRun(ctx context.Context, runID, errMsg string) error {
	if err := a.store.FailRun(ctx, runID, errMsg); err != nil {
		return eris.Wrapf(err, "workflow: fail run %s", runID)
	}
	return nil
}
