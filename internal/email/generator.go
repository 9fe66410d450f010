// Package email writes per-customer marketing emails with a language model.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/turnout-prep/internal/resilience"
	"github.com/sells-group/turnout-prep/pkg/anthropic"
)

// ErrorSentinel replaces the message body when generation fails. Callers
// treat it as "skip or retry later", never as content.
const ErrorSentinel = "ERROR"

// Customer is one input record.
type Customer struct {
	ID      string
	Segment string
}

// Prompts maps a customer segment to its writing instruction.
type Prompts map[string]string

// Config configures a Generator.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	StoreName   string
	// Interval is the minimum spacing between API calls. Zero disables pacing.
	Interval time.Duration
	Retry    resilience.RetryConfig
}

// Generator produces one email per customer. It is safe for concurrent use;
// calls are paced by a shared limiter.
type Generator struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewGenerator creates a Generator. A nil breaker disables circuit breaking.
func NewGenerator(client anthropic.Client, cfg Config, breaker *resilience.Breaker) *Generator {
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = shouldRetry
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "email")
	}
	return &Generator{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker,
	}
}

// Prompt renders the user message for one customer.
func (g *Generator) Prompt(instruction, customerID string) string {
	return fmt.Sprintf("%s\n\nConstraint: Use store name '%s'. Never use square brackets like [Name].\nCustomer ID: %s",
		strings.TrimSpace(instruction), g.cfg.StoreName, customerID)
}

// Generate returns the email body for c, or ErrorSentinel when the segment
// has no instruction, the API call fails or the reply is empty. It never
// returns an error.
func (g *Generator) Generate(ctx context.Context, c Customer, prompts Prompts) string {
	log := zap.L().With(zap.String("customer_id", c.ID), zap.String("segment", c.Segment))

	instruction, ok := prompts[c.Segment]
	if !ok {
		log.Warn("email: no instruction for segment")
		return ErrorSentinel
	}

	if err := g.limiter.Wait(ctx); err != nil {
		log.Warn("email: rate limiter", zap.Error(err))
		return ErrorSentinel
	}

	req := anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: &g.cfg.Temperature,
		Messages: []anthropic.Message{
			{Role: "user", Content: g.Prompt(instruction, c.ID)},
		},
	}

	text, err := g.call(ctx, req)
	if err != nil {
		log.Warn("email: generation failed", zap.Error(err))
		return ErrorSentinel
	}
	return text
}

func (g *Generator) call(ctx context.Context, req anthropic.MessageRequest) (string, error) {
	attempt := func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, g.cfg.Retry, func(ctx context.Context) (string, error) {
			resp, err := g.client.CreateMessage(ctx, req)
			if err != nil {
				return "", err
			}
			resp.Usage.LogCost(g.cfg.Model, "email")
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return "", eris.New("email: empty response")
			}
			return text, nil
		})
	}
	if g.breaker == nil {
		return attempt(ctx)
	}
	return resilience.Call(ctx, g.breaker, attempt)
}

// Result is one generated email.
type Result struct {
	CustomerID string
	Segment    string
	Email      string
}

// Failed reports whether generation fell back to the sentinel.
func (r Result) Failed() bool { return r.Email == ErrorSentinel }

// GenerateAll generates emails for customers in order. Cancellation stops
// the loop and returns the results collected so far with ctx's error.
func (g *Generator) GenerateAll(ctx context.Context, customers []Customer, prompts Prompts) ([]Result, error) {
	results := make([]Result, 0, len(customers))
	failed := 0
	for _, c := range customers {
		if err := ctx.Err(); err != nil {
			return results, eris.Wrap(err, "email: generation cancelled")
		}
		r := Result{CustomerID: c.ID, Segment: c.Segment, Email: g.Generate(ctx, c, prompts)}
		if r.Failed() {
			failed++
		}
		results = append(results, r)
	}

	zap.L().Info("email: generation complete",
		zap.Int("customers", len(customers)),
		zap.Int("failed", failed),
	)
	return results, nil
}

// shouldRetry retries transient API statuses and dropped connections.
func shouldRetry(err error) bool {
	if code := anthropic.StatusCode(err); code != 0 {
		return resilience.IsTransientStatus(code)
	}
	return resilience.IsTransient(err)
}
