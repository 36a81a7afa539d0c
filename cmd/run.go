package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/export"
	"github.com/sells-group/cafe-sync/internal/pipeline"
)

var (
	runForce  bool
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract cafés from Overpass and load them",
	Long:  "Runs one extract → load cycle. Without --force the run is skipped when a successful run already happened today (UTC).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mode := "run"
		if runDryRun {
			mode = "extract"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		ex := initExtractor()
		if runDryRun {
			res, err := pipeline.New(pipelineName(), cfg.Extract.Area, ex, nil).Run(ctx, pipeline.RunOpts{DryRun: true})
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), export.FormatYAML, res.Cafes)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := pipeline.New(pipelineName(), cfg.Extract.Area, ex, st)
		res, err := p.Run(ctx, pipeline.RunOpts{Force: runForce})
		if err != nil {
			return err
		}
		if res.NotDue {
			zap.L().Info("nothing to do; use --force to run again today")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "run even if a successful run already happened today")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "extract and print the batch without writing")
	rootCmd.AddCommand(runCmd)
}
