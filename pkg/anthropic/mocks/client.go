// Package mocks provides a testify mock of anthropic.Client.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/turnout-prep/pkg/anthropic"
)

// MockClient implements anthropic.Client for testing.
type MockClient struct {
	mock.Mock
}

var _ anthropic.Client = (*MockClient)(nil)

// NewMockClient creates a MockClient whose expectations are asserted when
// the test ends.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// CreateMessage implements anthropic.Client.
func (m *MockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}
