package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/turnout-prep/internal/store"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) CreateRun(ctx context.Context, plan, input string) (*store.Run, error) {
	args := m.Called(ctx, plan, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Run), args.Error(1)
}

func (m *mockLedger) RecordPass(ctx context.Context, runID string, pass store.PassRecord) (*store.PassRecord, error) {
	args := m.Called(ctx, runID, pass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.PassRecord), args.Error(1)
}

func (m *mockLedger) FinishRun(ctx context.Context, runID string, status store.RunStatus, errMsg string) error {
	args := m.Called(ctx, runID, status, errMsg)
	return args.Error(0)
}

func (m *mockLedger) GetRun(ctx context.Context, runID string) (*store.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Run), args.Error(1)
}

func (m *mockLedger) ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Run), args.Error(1)
}

func (m *mockLedger) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockLedger) Close() error {
	return m.Called().Error(0)
}
