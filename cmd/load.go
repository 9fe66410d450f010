package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/db"
	"github.com/sells-group/turnout-prep/internal/indicator"
)

type loadOptions struct {
	Input  string
	Table  string
	Schema string
	Upsert bool
}

var loadOpts loadOptions

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk load an indicator table into PostgreSQL",
	Long:  "Streams the table with COPY. With --upsert, rows are merged on (terc_code, year) instead of appended.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("load"); err != nil {
			return err
		}
		ctx := cmd.Context()

		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		return runLoad(ctx, pool, loadOpts)
	},
}

func runLoad(ctx context.Context, pool db.Pool, o loadOptions) error {
	t, err := indicator.ReadFile(ctx, o.Input, indicator.FileOptions{CodeWidth: 4})
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}

	schema := o.Schema
	if schema == "" {
		schema = cfg.Store.Schema
	}
	n, err := db.LoadTable(ctx, pool, schema, o.Table, t, o.Upsert)
	if err != nil {
		return eris.Wrap(err, "load")
	}

	zap.L().Info("load complete",
		zap.String("table", schema+"."+o.Table),
		zap.Int("rows", t.Len()),
		zap.Int64("written", n),
		zap.Bool("upsert", o.Upsert),
	)
	return nil
}

func init() {
	loadCmd.Flags().StringVar(&loadOpts.Input, "input", "", "indicator table, .csv or .xlsx (required)")
	loadCmd.Flags().StringVar(&loadOpts.Table, "table", "", "target table (required)")
	loadCmd.Flags().StringVar(&loadOpts.Schema, "schema", "", "target schema; store.schema when empty")
	loadCmd.Flags().BoolVar(&loadOpts.Upsert, "upsert", false, "update rows that already exist")
	_ = loadCmd.MarkFlagRequired("input")
	_ = loadCmd.MarkFlagRequired("table")
	rootCmd.AddCommand(loadCmd)
}
