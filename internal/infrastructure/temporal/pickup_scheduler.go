package temporal

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/internal/workflows"
	"github.com/wms-platform/fulfillment-service/pkg/resilience"
	pkgtemporal "github.com/wms-platform/fulfillment-service/pkg/temporal"
)

// workflowClient is the part of pkg/temporal.Client the scheduler uses
type workflowClient interface {
	StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, signalName string, arg interface{}) error
}

// PickupScheduler implements application.PickupScheduler with the inbound
// pickup workflow
type PickupScheduler struct {
	client         workflowClient
	taskQueue      string
	pickupTimeout  time.Duration
	receiptTimeout time.Duration
	retry          *resilience.RetryConfig
}

var _ application.PickupScheduler = (*PickupScheduler)(nil)

// NewPickupScheduler creates a scheduler starting workflows on taskQueue
func NewPickupScheduler(c *pkgtemporal.Client, taskQueue string, pickupTimeout, receiptTimeout time.Duration) *PickupScheduler {
	return newPickupScheduler(c, taskQueue, pickupTimeout, receiptTimeout)
}

func newPickupScheduler(c workflowClient, taskQueue string, pickupTimeout, receiptTimeout time.Duration) *PickupScheduler {
	if taskQueue == "" {
		taskQueue = pkgtemporal.TaskQueues.Inbound
	}
	return &PickupScheduler{
		client:         c,
		taskQueue:      taskQueue,
		pickupTimeout:  pickupTimeout,
		receiptTimeout: receiptTimeout,
		retry: &resilience.RetryConfig{
			MaxAttempts:     3,
			InitialDelay:    200 * time.Millisecond,
			MaxDelay:        2 * time.Second,
			BackoffFactor:   2.0,
			RetryableErrors: isTransient,
		},
	}
}

// SchedulePickup starts the pickup workflow of a request
func (s *PickupScheduler) SchedulePickup(ctx context.Context, requestID string) (string, error) {
	workflowID := workflows.PickupWorkflowID(requestID)
	input := workflows.InboundPickupInput{
		RequestID:      requestID,
		PickupTimeout:  s.pickupTimeout,
		ReceiptTimeout: s.receiptTimeout,
	}

	run, err := s.client.StartWorkflow(ctx, workflowID, s.taskQueue, pkgtemporal.WorkflowNames.InboundPickup, input)
	if err != nil {
		return "", fmt.Errorf("failed to start pickup workflow: %w", err)
	}
	return run.GetID(), nil
}

// SignalPickedUp tells the workflow the courier collected the goods
func (s *PickupScheduler) SignalPickedUp(ctx context.Context, workflowID string) error {
	return s.signal(ctx, workflowID, pkgtemporal.SignalNames.PickedUp)
}

// SignalReceived tells the workflow the warehouse received the goods
func (s *PickupScheduler) SignalReceived(ctx context.Context, workflowID string) error {
	return s.signal(ctx, workflowID, pkgtemporal.SignalNames.Received)
}

func (s *PickupScheduler) signal(ctx context.Context, workflowID, name string) error {
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.client.SignalWorkflow(ctx, workflowID, name, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to signal %s to %s: %w", name, workflowID, err)
	}
	return nil
}

// isTransient reports whether a signal failure may succeed on retry. A
// finished or unknown workflow never will.
func isTransient(err error) bool {
	var notFound *serviceerror.NotFound
	return !stderrors.As(err, &notFound)
}
