package activities

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/internal/workflows"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

// MockInboundService is a mock implementation of the inbound service
type MockInboundService struct {
	mock.Mock
}

func (m *MockInboundService) GetRequest(ctx context.Context, requestID string) (*application.InboundDTO, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.InboundDTO), args.Error(1)
}

func (m *MockInboundService) Apply(ctx context.Context, requestID string, t domain.InboundTransition) (*application.InboundTransitionDTO, error) {
	args := m.Called(ctx, requestID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.InboundTransitionDTO), args.Error(1)
}

func withStatus(status string) *application.InboundDTO {
	return &application.InboundDTO{RequestID: "INB-001", Status: status}
}

func newActivityEnv(service InboundService) (*testsuite.TestActivityEnvironment, *InboundActivities) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	acts := NewInboundActivities(service)
	env.RegisterActivity(acts)
	return env, acts
}

// TestInitiateInboundPickup_Applies tests the pending request path
func TestInitiateInboundPickup_Applies(t *testing.T) {
	service := new(MockInboundService)
	service.On("GetRequest", mock.Anything, "INB-001").Return(withStatus("pending"), nil)
	service.On("Apply", mock.Anything, "INB-001", domain.InitiateInboundPickup{}).Return(
		&application.InboundTransitionDTO{From: "pending", To: "initiated_pickup"}, nil)

	env, acts := newActivityEnv(service)
	val, err := env.ExecuteActivity(acts.InitiateInboundPickup, "INB-001")
	require.NoError(t, err)

	var result workflows.InboundActivityResult
	require.NoError(t, val.Get(&result))
	assert.Equal(t, "initiated_pickup", result.Status)
	assert.True(t, result.Applied)
	service.AssertExpectations(t)
}

// TestInboundActivities_SkipWhenPastTarget tests idempotent retries
func TestInboundActivities_SkipWhenPastTarget(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		execute func(env *testsuite.TestActivityEnvironment, acts *InboundActivities) (converter.EncodedValue, error)
	}{
		{
			name:   "initiate after pick up",
			status: "picked_up",
			execute: func(env *testsuite.TestActivityEnvironment, acts *InboundActivities) (converter.EncodedValue, error) {
				return env.ExecuteActivity(acts.InitiateInboundPickup, "INB-001")
			},
		},
		{
			name:   "cancel after pick up",
			status: "picked_up",
			execute: func(env *testsuite.TestActivityEnvironment, acts *InboundActivities) (converter.EncodedValue, error) {
				return env.ExecuteActivity(acts.CancelInbound, workflows.CancelInboundInput{RequestID: "INB-001", Reason: "timeout"})
			},
		},
		{
			name:   "complete when cancelled",
			status: "cancelled",
			execute: func(env *testsuite.TestActivityEnvironment, acts *InboundActivities) (converter.EncodedValue, error) {
				return env.ExecuteActivity(acts.CompleteInbound, "INB-001")
			},
		},
		{
			name:   "complete twice",
			status: "completed",
			execute: func(env *testsuite.TestActivityEnvironment, acts *InboundActivities) (converter.EncodedValue, error) {
				return env.ExecuteActivity(acts.CompleteInbound, "INB-001")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockInboundService)
			service.On("GetRequest", mock.Anything, "INB-001").Return(withStatus(tt.status), nil)

			env, acts := newActivityEnv(service)
			val, err := tt.execute(env, acts)
			require.NoError(t, err)

			var result workflows.InboundActivityResult
			require.NoError(t, val.Get(&result))
			assert.Equal(t, tt.status, result.Status)
			assert.False(t, result.Applied)
			service.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// TestCompleteInbound_InsufficientStockIsNonRetryable tests error classification
func TestCompleteInbound_InsufficientStockIsNonRetryable(t *testing.T) {
	service := new(MockInboundService)
	service.On("GetRequest", mock.Anything, "INB-001").Return(withStatus("picked_up"), nil)
	service.On("Apply", mock.Anything, "INB-001", domain.CompleteInbound{}).Return(nil,
		errors.ErrInsufficientStock("insufficient stock for 1 item"))

	env, acts := newActivityEnv(service)
	_, err := env.ExecuteActivity(acts.CompleteInbound, "INB-001")
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, stderrors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
}

// TestCompleteInbound_InfrastructureErrorIsRetryable tests error classification
func TestCompleteInbound_InfrastructureErrorIsRetryable(t *testing.T) {
	service := new(MockInboundService)
	service.On("GetRequest", mock.Anything, "INB-001").Return(nil, stderrors.New("connection reset"))

	env, acts := newActivityEnv(service)
	_, err := env.ExecuteActivity(acts.CompleteInbound, "INB-001")
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	if stderrors.As(err, &appErr) {
		assert.False(t, appErr.NonRetryable())
	}
}
