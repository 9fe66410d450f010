package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnout-prep/internal/resilience"
	"github.com/sells-group/turnout-prep/pkg/anthropic"
	"github.com/sells-group/turnout-prep/pkg/anthropic/mocks"
)

var testPrompts = Prompts{
	"loyal":   "Thank the customer for staying with us.",
	"at_risk": "Offer a 10% discount on the next order.",
}

func testConfig() Config {
	return Config{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   512,
		Temperature: 0.7,
		StoreName:   "Wojciech Kiełbowicz & Co",
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	}
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 80, OutputTokens: 120},
	}
}

func TestGenerate_Success(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		if len(req.Messages) != 1 || req.Temperature == nil || *req.Temperature != 0.7 {
			return false
		}
		body := req.Messages[0].Content
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 512 &&
			req.Messages[0].Role == "user" &&
			strings.HasPrefix(body, "Offer a 10% discount") &&
			strings.Contains(body, "'Wojciech Kiełbowicz & Co'") &&
			strings.Contains(body, "Never use square brackets") &&
			strings.HasSuffix(body, "Customer ID: C-17")
	})).Return(textResponse("  Dear customer, here is 10% off.\n"), nil).Once()

	g := NewGenerator(client, testConfig(), nil)
	got := g.Generate(context.Background(), Customer{ID: "C-17", Segment: "at_risk"}, testPrompts)
	assert.Equal(t, "Dear customer, here is 10% off.", got)
}

func TestGenerate_UnknownSegment(t *testing.T) {
	client := mocks.NewMockClient(t)

	g := NewGenerator(client, testConfig(), nil)
	got := g.Generate(context.Background(), Customer{ID: "C-1", Segment: "vip"}, testPrompts)
	assert.Equal(t, ErrorSentinel, got)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestGenerate_RetriesTransientErrors(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("Thanks for shopping!"), nil).Once()

	g := NewGenerator(client, testConfig(), nil)
	got := g.Generate(context.Background(), Customer{ID: "C-2", Segment: "loyal"}, testPrompts)
	assert.Equal(t, "Thanks for shopping!", got)
}

func TestGenerate_PermanentErrorNotRetried(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("invalid x-api-key")).Once()

	g := NewGenerator(client, testConfig(), nil)
	got := g.Generate(context.Background(), Customer{ID: "C-3", Segment: "loyal"}, testPrompts)
	assert.Equal(t, ErrorSentinel, got)
}

func TestGenerate_EmptyResponse(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("   "), nil).Once()

	g := NewGenerator(client, testConfig(), nil)
	got := g.Generate(context.Background(), Customer{ID: "C-4", Segment: "loyal"}, testPrompts)
	assert.Equal(t, ErrorSentinel, got)
}

func TestGenerate_BreakerStopsCalls(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("account suspended")).Once()

	g := NewGenerator(client, testConfig(), resilience.NewBreaker(1, time.Hour))
	ctx := context.Background()
	assert.Equal(t, ErrorSentinel, g.Generate(ctx, Customer{ID: "C-5", Segment: "loyal"}, testPrompts))
	assert.Equal(t, ErrorSentinel, g.Generate(ctx, Customer{ID: "C-6", Segment: "loyal"}, testPrompts))
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestGenerate_Paced(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("ok"), nil).Times(3)

	cfg := testConfig()
	cfg.Interval = 25 * time.Millisecond
	g := NewGenerator(client, cfg, nil)

	start := time.Now()
	for range 3 {
		require.Equal(t, "ok", g.Generate(context.Background(), Customer{ID: "C", Segment: "loyal"}, testPrompts))
	}
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestGenerateAll(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("hello"), nil).Twice()

	g := NewGenerator(client, testConfig(), nil)
	results, err := g.GenerateAll(context.Background(), []Customer{
		{ID: "1", Segment: "loyal"},
		{ID: "2", Segment: "unknown"},
		{ID: "3", Segment: "at_risk"},
	}, testPrompts)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, Result{CustomerID: "1", Segment: "loyal", Email: "hello"}, results[0])
	assert.True(t, results[1].Failed())
	assert.False(t, results[2].Failed())
}

func TestGenerateAll_Cancelled(t *testing.T) {
	client := mocks.NewMockClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(client, testConfig(), nil)
	results, err := g.GenerateAll(ctx, []Customer{{ID: "1", Segment: "loyal"}}, testPrompts)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(resilience.NewTransientError(errors.New("x"), 503)))
	assert.True(t, shouldRetry(errors.New("read tcp: connection reset by peer")))
	assert.False(t, shouldRetry(errors.New("bad request")))
}
