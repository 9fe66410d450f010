package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/election"
	"github.com/sells-group/turnout-prep/internal/indicator"
)

var countiesCmd = &cobra.Command{
	Use:   "counties",
	Short: "Repair county rows after boundary changes",
}

// -- counties carve --

type carveOptions struct {
	Input   string
	Output  string
	From    string
	Name    string
	Share     float64
	Columns   []string
	Code      string
	Reference string
}

var carveOpts carveOptions

var countiesCarveCmd = &cobra.Command{
	Use:   "carve",
	Short: "Add a county carved out of an existing one",
	Long:  "Appends a row for --name derived from the --from county's row with the listed count columns scaled by --share. The new row gets --code, or every row is recoded by name from --reference.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCarve(cmd.Context(), carveOpts)
	},
}

func runCarve(ctx context.Context, o carveOptions) error {
	if o.Code == "" && o.Reference == "" {
		return eris.New("counties carve: --code or --reference is required")
	}
	t, err := indicator.ReadFile(ctx, o.Input, indicator.FileOptions{CodeWidth: 4})
	if err != nil {
		return err
	}
	selected, err := election.RowByCounty(t, o.From)
	if err != nil {
		return err
	}
	row, err := election.SplitRow(t, selected, o.Name, o.Share, o.Columns...)
	if err != nil {
		return err
	}
	row.Code = o.Code
	if err := t.Append(row); err != nil {
		return eris.Wrap(err, "counties carve")
	}

	if o.Reference != "" {
		ref, err := indicator.ReadFile(ctx, o.Reference, indicator.FileOptions{CodeWidth: 4})
		if err != nil {
			return err
		}
		t = recode(t, ref)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	return indicator.WriteCSVFile(o.Output, t)
}

// -- counties recode --

type recodeOptions struct {
	Input     string
	Reference string
	Output    string
}

var recodeOpts recodeOptions

var countiesRecodeCmd = &cobra.Command{
	Use:   "recode",
	Short: "Reassign terc codes by county name from a reference table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRecode(cmd.Context(), recodeOpts)
	},
}

func runRecode(ctx context.Context, o recodeOptions) error {
	t, err := indicator.ReadFile(ctx, o.Input, indicator.FileOptions{CodeWidth: 4})
	if err != nil {
		return err
	}
	ref, err := indicator.ReadFile(ctx, o.Reference, indicator.FileOptions{CodeWidth: 4})
	if err != nil {
		return err
	}

	return indicator.WriteCSVFile(o.Output, recode(t, ref))
}

func recode(t, ref *indicator.Table) *indicator.Table {
	out, matched := election.UpdateCodes(t, ref)
	if unmatched := out.Len() - matched; unmatched > 0 {
		zap.L().Warn("counties: rows without a reference county", zap.Int("unmatched", unmatched))
	}
	return out
}

func init() {
	countiesCarveCmd.Flags().StringVar(&carveOpts.Input, "input", "", "election table (required)")
	countiesCarveCmd.Flags().StringVar(&carveOpts.Output, "output", "", "output CSV path (required)")
	countiesCarveCmd.Flags().StringVar(&carveOpts.From, "from", "", "county to carve from (required)")
	countiesCarveCmd.Flags().StringVar(&carveOpts.Name, "name", "", "name of the new county (required)")
	countiesCarveCmd.Flags().Float64Var(&carveOpts.Share, "share", 0, "fraction of the source counts (required)")
	countiesCarveCmd.Flags().StringSliceVar(&carveOpts.Columns, "columns", nil, "count columns to scale; vote counts when empty")
	countiesCarveCmd.Flags().StringVar(&carveOpts.Code, "code", "", "terc code of the new county")
	countiesCarveCmd.Flags().StringVar(&carveOpts.Reference, "reference", "", "table with current codes; recodes every row by county name")
	for _, f := range []string{"input", "output", "from", "name", "share"} {
		_ = countiesCarveCmd.MarkFlagRequired(f)
	}

	countiesRecodeCmd.Flags().StringVar(&recodeOpts.Input, "input", "", "table to recode (required)")
	countiesRecodeCmd.Flags().StringVar(&recodeOpts.Reference, "reference", "", "table with current codes (required)")
	countiesRecodeCmd.Flags().StringVar(&recodeOpts.Output, "output", "", "output CSV path (required)")
	for _, f := range []string{"input", "reference", "output"} {
		_ = countiesRecodeCmd.MarkFlagRequired(f)
	}

	countiesCmd.AddCommand(countiesCarveCmd)
	countiesCmd.AddCommand(countiesRecodeCmd)
	rootCmd.AddCommand(countiesCmd)
}
