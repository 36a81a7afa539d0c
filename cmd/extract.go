package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/cafe-sync/internal/export"
)

var (
	extractFormat    string
	extractShowQuery bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the Overpass query and print the batch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		format, err := export.ParseFormat(extractFormat)
		if err != nil {
			return err
		}

		ex := initExtractor()
		if extractShowQuery {
			_, err := io.WriteString(cmd.OutOrStdout(), ex.Query()+"\n")
			return err
		}

		cafes, err := ex.Extract(ctx)
		if err != nil {
			return err
		}
		return export.Write(cmd.OutOrStdout(), format, cafes)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFormat, "format", "yaml", "output format: yaml, json, csv or xlsx")
	extractCmd.Flags().BoolVar(&extractShowQuery, "query", false, "print the Overpass QL instead of running it")
	rootCmd.AddCommand(extractCmd)
}
