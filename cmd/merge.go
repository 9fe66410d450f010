package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/election"
	"github.com/sells-group/turnout-prep/internal/indicator"
)

type mergeOptions struct {
	Election string
	Features string
	Output   string
	Years    []int
	Lag      []string
}

var mergeOpts mergeOptions

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Lag indicator features and join them onto election results",
	Long:  "Shifts every feature row one year forward, adds 1- and 5-year deltas, keeps the election years and inner-joins on terc code, county and year.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMerge(cmd.Context(), mergeOpts)
	},
}

func runMerge(ctx context.Context, o mergeOptions) error {
	elections, err := indicator.ReadFile(ctx, o.Election, indicator.FileOptions{CodeWidth: 4})
	if err != nil {
		return err
	}
	features, err := indicator.ReadFile(ctx, o.Features, indicator.FileOptions{CodeWidth: 4})
	if err != nil {
		return err
	}

	lag := o.Lag
	if len(lag) == 0 {
		lag = features.Columns
	}
	lagged, err := election.LagFeatures(features, lag)
	if err != nil {
		return err
	}

	merged, err := election.Merge(elections, lagged, o.Years)
	if err != nil {
		return err
	}
	if err := indicator.WriteCSVFile(o.Output, merged); err != nil {
		return err
	}

	zap.L().Info("merge complete",
		zap.Int("election_rows", elections.Len()),
		zap.Int("merged_rows", merged.Len()),
		zap.Int("columns", len(merged.Columns)),
		zap.String("output", o.Output),
	)
	return nil
}

func init() {
	mergeCmd.Flags().StringVar(&mergeOpts.Election, "election", "", "election results table (required)")
	mergeCmd.Flags().StringVar(&mergeOpts.Features, "features", "", "backfilled indicator table (required)")
	mergeCmd.Flags().StringVar(&mergeOpts.Output, "output", "", "output CSV path (required)")
	mergeCmd.Flags().IntSliceVar(&mergeOpts.Years, "years", election.ElectionYears, "election years to keep")
	mergeCmd.Flags().StringSliceVar(&mergeOpts.Lag, "lag", nil, "feature columns to add deltas for; all when empty")
	_ = mergeCmd.MarkFlagRequired("election")
	_ = mergeCmd.MarkFlagRequired("features")
	_ = mergeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(mergeCmd)
}
