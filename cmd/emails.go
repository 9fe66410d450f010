package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/email"
	"github.com/sells-group/turnout-prep/internal/resilience"
	"github.com/sells-group/turnout-prep/pkg/anthropic"
)

type emailsOptions struct {
	Customers string
	Prompts   string
	Output    string
}

var emailsOpts emailsOptions

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "Generate a marketing email per customer segment",
	Long:  "Writes one email per customer with the instruction of its segment. Failed generations are written as ERROR.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("emails"); err != nil {
			return err
		}
		return runEmails(cmd.Context(), anthropic.NewClient(cfg.Anthropic.Key), emailsOpts)
	},
}

func runEmails(ctx context.Context, client anthropic.Client, o emailsOptions) error {
	customers, err := email.ReadCustomersFile(o.Customers)
	if err != nil {
		return err
	}
	prompts, err := email.LoadPrompts(o.Prompts)
	if err != nil {
		return err
	}

	gen := email.NewGenerator(client, email.Config{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   int64(cfg.Anthropic.MaxTokens),
		Temperature: cfg.Email.Temperature,
		StoreName:   cfg.Email.StoreName,
		Interval:    time.Duration(cfg.Email.IntervalMs) * time.Millisecond,
		Retry:       resilience.FromConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
	}, resilience.NewBreaker(cfg.Email.BreakerThreshold, time.Duration(cfg.Email.BreakerCooldownSecs)*time.Second))

	// Partial results are still written when the run is interrupted.
	results, genErr := gen.GenerateAll(ctx, customers, prompts)
	if err := email.WriteResultsFile(o.Output, results); err != nil {
		return err
	}
	if genErr != nil {
		return genErr
	}

	zap.L().Info("emails complete",
		zap.Int("customers", len(customers)),
		zap.String("output", o.Output),
	)
	return nil
}

func init() {
	emailsCmd.Flags().StringVar(&emailsOpts.Customers, "customers", "", "customers CSV with customer_id and segmentation (required)")
	emailsCmd.Flags().StringVar(&emailsOpts.Prompts, "prompts", "", "YAML or JSON mapping of segment to instruction (required)")
	emailsCmd.Flags().StringVar(&emailsOpts.Output, "output", "", "output CSV path (required)")
	for _, f := range []string{"customers", "prompts", "output"} {
		_ = emailsCmd.MarkFlagRequired(f)
	}
	rootCmd.AddCommand(emailsCmd)
}
