package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/cafe-sync/internal/model"
	"github.com/sells-group/cafe-sync/internal/store"
)

// Retry policy for both activities. The Overpass client itself never retries.
const (
	activityTimeout    = 2 * time.Minute
	retryInitial       = 30 * time.Second
	retryMaxInterval   = 5 * time.Minute
	retryMaxAttempts   = 3
	retryBackoffFactor = 2.0
)

// SyncResult is the workflow result.
type SyncResult struct {
	Extracted int               `json:"extracted"`
	Load      *store.LoadResult `json:"load"`
}

// CafeSyncWorkflow opens one run log row, extracts the batch and hands it to
// the load activity. Once the run is open, any error marks it failed.
func CafeSyncWorkflow(ctx workflow.Context) (*SyncResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    retryInitial,
			BackoffCoefficient: retryBackoffFactor,
			MaximumInterval:    retryMaxInterval,
			MaximumAttempts:    retryMaxAttempts,
		},
	})
	log := workflow.GetLogger(ctx)

	var a *Activities

	var runID string
	if err := workflow.ExecuteActivity(ctx, a.StartSyncRun).Get(ctx, &runID); err != nil {
		return nil, err
	}

	res, err := syncRun(ctx, a, runID)
	if err != nil {
		if failErr := workflow.ExecuteActivity(ctx, a.FailSyncRun, runID, err.Error()).Get(ctx, nil); failErr != nil {
			log.Error("failed to record run failure", "run_id", runID, "error", failErr)
		}
		return nil, err
	}
	return res, nil
}

func syncRun(ctx workflow.Context, a *Activities, runID string) (*SyncResult, error) {
	log := workflow.GetLogger(ctx)

	var cafes []model.Cafe
	if err := workflow.ExecuteActivity(ctx, a.ExtractCafes).Get(ctx, &cafes); err != nil {
		return nil, err
	}
	log.Info("extracted cafes", "count", len(cafes))

	var loaded store.LoadResult
	if err := workflow.ExecuteActivity(ctx, a.LoadCafes, runID, cafes).Get(ctx, &loaded); err != nil {
		return nil, err
	}
	log.Info("loaded cafes", "inserted", loaded.Inserted, "skipped", loaded.Skipped)

	return &SyncResult{Extracted: len(cafes), Load: &loaded}, nil
}
