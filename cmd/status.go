package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cafe-sync/internal/monitoring"
)

var statusNotify bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check sync health and report alerts",
	Long:  "Summarizes recent runs and exits non-zero when a health alert is raised. With --notify, alerts are also posted to monitoring.webhook_url.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}

		checker := monitoring.NewChecker(
			monitoring.NewCollector(st, pipelineName()),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		status, err := checker.Status(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		formatStatus(cmd.OutOrStdout(), status)

		if status.Healthy {
			return nil
		}
		if statusNotify {
			checker.Check(ctx)
		}
		return eris.Errorf("status: %d alert(s) raised", len(status.Alerts))
	},
}

// formatStatus writes a short health summary to out.
func formatStatus(out io.Writer, st *monitoring.Status) {
	snap := st.Snapshot
	fmt.Fprintf(out, "Pipeline:      %s\n", snap.Pipeline)
	fmt.Fprintf(out, "Cafes stored:  %d\n", snap.Cafes)
	fmt.Fprintf(out, "Runs (%dh):    %d total, %d complete, %d failed, %d running\n",
		snap.LookbackHours, snap.RunsTotal, snap.RunsComplete, snap.RunsFailed, snap.RunsRunning)
	if snap.LastSuccess != nil {
		fmt.Fprintf(out, "Last success:  %s (%.1fh ago)\n",
			snap.LastSuccess.UTC().Format(time.RFC3339), snap.HoursSinceSuccess)
	} else {
		fmt.Fprintln(out, "Last success:  never")
	}

	if len(st.Alerts) == 0 {
		fmt.Fprintln(out, "Health:        ok")
		return
	}
	fmt.Fprintf(out, "Health:        %d alert(s)\n", len(st.Alerts))
	for _, a := range st.Alerts {
		fmt.Fprintf(out, "  [%s] %s: %s\n", a.Severity, a.Type, a.Message)
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusNotify, "notify", false, "post raised alerts to the monitoring webhook")
	rootCmd.AddCommand(statusCmd)
}
