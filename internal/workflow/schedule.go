package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// catchupWindow is short so missed days are dropped, not back-filled.
const catchupWindow = time.Minute

// ScheduleConfig identifies the daily schedule.
type ScheduleConfig struct {
	ID        string
	Cron      string
	TaskQueue string
}

func scheduleOptions(cfg ScheduleConfig) client.ScheduleOptions {
	return client.ScheduleOptions{
		ID: cfg.ID,
		Spec: client.ScheduleSpec{
			CronExpressions: []string{cfg.Cron},
			TimeZoneName:    "UTC",
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        cfg.ID + "-run",
			Workflow:  CafeSyncWorkflow,
			TaskQueue: cfg.TaskQueue,
		},
		Overlap:       enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		CatchupWindow: catchupWindow,
	}
}

// EnsureSchedule creates the daily schedule, or updates its spec and action
// when a schedule with the same ID already exists.
func EnsureSchedule(ctx context.Context, sc client.ScheduleClient, cfg ScheduleConfig) error {
	log := zap.L().With(zap.String("component", "workflow.schedule"), zap.String("schedule_id", cfg.ID))
	opts := scheduleOptions(cfg)

	_, err := sc.Create(ctx, opts)
	if err == nil {
		log.Info("schedule created", zap.String("cron", cfg.Cron))
		return nil
	}
	if !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return eris.Wrapf(err, "workflow: create schedule %s", cfg.ID)
	}

	err = sc.GetHandle(ctx, cfg.ID).Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(in client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			s := in.Description.Schedule
			s.Spec = &opts.Spec
			s.Action = opts.Action
			if s.Policy == nil {
				s.Policy = &client.SchedulePolicies{}
			}
			s.Policy.Overlap = opts.Overlap
			s.Policy.CatchupWindow = opts.CatchupWindow
			return &client.ScheduleUpdate{Schedule: &s}, nil
		},
	})
	if err != nil {
		return eris.Wrapf(err, "workflow: update schedule %s", cfg.ID)
	}
	log.Info("schedule updated", zap.String("cron", cfg.Cron))
	return nil
}
