package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/workflow"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker for the café sync workflow",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("worker"); err != nil {
			return err
		}

		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		acts := workflow.NewActivities(initExtractor(), st, pipelineName(), cfg.Extract.Area)
		w := workflow.NewWorker(c, cfg.Temporal.TaskQueue, acts)

		zap.L().Info("starting worker",
			zap.String("task_queue", cfg.Temporal.TaskQueue),
			zap.String("namespace", cfg.Temporal.Namespace),
		)
		return eris.Wrap(w.Run(worker.InterruptCh()), "worker: run")
	},
}

var workerScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Create or update the daily schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("worker"); err != nil {
			return err
		}

		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		return workflow.EnsureSchedule(cmd.Context(), c.ScheduleClient(), workflow.ScheduleConfig{
			ID:        cfg.Temporal.ScheduleID,
			Cron:      cfg.Temporal.Cron,
			TaskQueue: cfg.Temporal.TaskQueue,
		})
	},
}

func dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    workflow.NewZapLogger(zap.L()),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "temporal: dial %s", cfg.Temporal.HostPort)
	}
	return c, nil
}

func init() {
	workerCmd.AddCommand(workerScheduleCmd)
	rootCmd.AddCommand(workerCmd)
}
