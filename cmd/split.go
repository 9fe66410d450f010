package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/election"
	"github.com/sells-group/turnout-prep/internal/indicator"
)

type splitOptions struct {
	Input  string
	Target string
	Year   int
	Train  string
	Test   string
}

var splitOpts splitOptions

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a merged table into train and test sets by year",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSplit(cmd.Context(), splitOpts)
	},
}

func runSplit(ctx context.Context, o splitOptions) error {
	t, err := indicator.ReadFile(ctx, o.Input, indicator.FileOptions{CodeWidth: 4})
	if err != nil {
		return err
	}
	train, test, err := election.SplitTrainTest(t, o.Target, o.Year)
	if err != nil {
		return err
	}
	if err := indicator.WriteCSVFile(o.Train, train); err != nil {
		return err
	}
	if err := indicator.WriteCSVFile(o.Test, test); err != nil {
		return err
	}

	zap.L().Info("split complete",
		zap.Int("test_year", o.Year),
		zap.Int("train_rows", train.Len()),
		zap.Int("test_rows", test.Len()),
	)
	return nil
}

func init() {
	splitCmd.Flags().StringVar(&splitOpts.Input, "input", "", "merged table (required)")
	splitCmd.Flags().StringVar(&splitOpts.Target, "target", "", "target column (required)")
	splitCmd.Flags().IntVar(&splitOpts.Year, "year", 2025, "test year")
	splitCmd.Flags().StringVar(&splitOpts.Train, "train", "", "train CSV path (required)")
	splitCmd.Flags().StringVar(&splitOpts.Test, "test", "", "test CSV path (required)")
	for _, f := range []string{"input", "target", "train", "test"} {
		_ = splitCmd.MarkFlagRequired(f)
	}
	rootCmd.AddCommand(splitCmd)
}
