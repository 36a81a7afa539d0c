package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/export"
	"github.com/sells-group/cafe-sync/internal/model"
	"github.com/sells-group/cafe-sync/internal/store"
)

const exportPageSize = 1000

var (
	exportFormat string
	exportOutput string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored cafés as csv, xlsx, yaml or json",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
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

		cafes, err := readAllCafes(ctx, st, exportLimit)
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return eris.Wrapf(err, "export: create %s", exportOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := export.Write(out, format, cafes); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("format", string(format)),
			zap.Int("cafes", len(cafes)),
			zap.String("output", exportOutput),
		)
		return nil
	},
}

// readAllCafes pages through the table in osm_id order. limit <= 0 reads
// every row.
func readAllCafes(ctx context.Context, st store.Store, limit int) ([]model.Cafe, error) {
	var all []model.Cafe
	for offset := 0; ; offset += exportPageSize {
		pageSize := exportPageSize
		if limit > 0 {
			pageSize = min(pageSize, limit-len(all))
			if pageSize <= 0 {
				break
			}
		}

		page, err := st.ListCafes(ctx, store.CafeFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, eris.Wrap(err, "export: read cafes")
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
	}
	return all, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv, xlsx, yaml or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum cafés to export (0 = all)")
	rootCmd.AddCommand(exportCmd)
}
