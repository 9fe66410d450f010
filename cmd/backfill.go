package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/extrapolate"
	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/pipeline"
	"github.com/sells-group/turnout-prep/internal/plan"
	"github.com/sells-group/turnout-prep/internal/store"
)

type backfillOptions struct {
	Input     string
	Plan      string
	Output    string
	Sheet     string
	CodeWidth int
}

var backfillOpts backfillOptions

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run a backfill plan over an indicator table",
	Long:  "Reads an indicator table (CSV or XLSX), applies the passes of a plan file in order and writes the filled table as CSV.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("backfill"); err != nil {
			return err
		}
		return runBackfill(cmd.Context(), backfillOpts, os.Stdout)
	},
}

func runBackfill(ctx context.Context, o backfillOptions, out io.Writer) error {
	p, err := plan.Load(o.Plan)
	if err != nil {
		return err
	}

	t, err := indicator.ReadFile(ctx, o.Input, indicator.FileOptions{Sheet: o.Sheet, CodeWidth: o.CodeWidth})
	if err != nil {
		return eris.Wrap(err, "backfill: read input")
	}

	passes, err := pipeline.Build(ctx, p, pipeline.Deps{
		Batch: extrapolate.NewBatch(cfg.Batch.MaxWorkers),
		ARIMA: cfg.ARIMA.AutoConfig(),
	})
	if err != nil {
		return err
	}

	var ledger store.Ledger
	st, err := openLedger(ctx)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
		ledger = st
	}

	res, err := pipeline.NewRunner(ledger).Run(ctx, p.Name, o.Input, t, passes)
	if err != nil {
		return err
	}

	if err := indicator.WriteCSVFile(o.Output, res.Table); err != nil {
		return err
	}

	zap.L().Info("backfill complete",
		zap.String("run_id", res.RunID),
		zap.String("output", o.Output),
		zap.Int("rows", res.Table.Len()),
	)
	formatPassStats(out, res.Passes)
	return nil
}

// formatPassStats writes one line per executed pass.
func formatPassStats(out io.Writer, passes []pipeline.PassStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tPASS\tCOLUMN\tROWS\tFILLED\tSKIPPED\tDURATION")
	for i, p := range passes {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d->%d\t%d\t%d\t%s\n",
			i+1, p.Name, p.Column, p.RowsIn, p.RowsOut, p.Filled, p.Skipped, p.Duration.Round(time.Millisecond))
	}
	_ = w.Flush()
}

func init() {
	backfillCmd.Flags().StringVar(&backfillOpts.Input, "input", "", "indicator table, .csv or .xlsx (required)")
	backfillCmd.Flags().StringVar(&backfillOpts.Plan, "plan", "", "plan file (required)")
	backfillCmd.Flags().StringVar(&backfillOpts.Output, "output", "", "output CSV path (required)")
	backfillCmd.Flags().StringVar(&backfillOpts.Sheet, "sheet", "", "xlsx sheet name; first sheet when empty")
	backfillCmd.Flags().IntVar(&backfillOpts.CodeWidth, "code-width", 4, "zero-pad terc codes to this width; 0 keeps them as read")
	_ = backfillCmd.MarkFlagRequired("input")
	_ = backfillCmd.MarkFlagRequired("plan")
	_ = backfillCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(backfillCmd)
}
