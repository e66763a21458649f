package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"

	pkgtemporal "github.com/wms-platform/fulfillment-service/pkg/temporal"
)

// Pickup workflow outcomes
const (
	PickupStatusCompleted       = "completed"
	PickupStatusCancelled       = "cancelled"
	PickupStatusAwaitingReceipt = "awaiting_receipt"
)

// Timeout defaults applied when the input leaves them unset
const (
	DefaultPickupTimeout  time.Duration = 48 * time.Hour
	DefaultReceiptTimeout time.Duration = 7 * 24 * time.Hour
)

// PickupCancelReason is recorded on requests the courier never collected
const PickupCancelReason = "pickup timed out"

// InboundPickupInput represents the input for the inbound pickup workflow
type InboundPickupInput struct {
	RequestID      string        `json:"requestId"`
	PickupTimeout  time.Duration `json:"pickupTimeout"`
	ReceiptTimeout time.Duration `json:"receiptTimeout"`
}

// InboundPickupResult represents the result of the inbound pickup workflow
type InboundPickupResult struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

// InboundActivityResult is returned by every inbound activity. Applied is
// false when the request had already moved past the activity's target.
type InboundActivityResult struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	Applied   bool   `json:"applied"`
}

// CancelInboundInput is the input of the CancelInbound activity
type CancelInboundInput struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}

// PickupWorkflowID returns the workflow ID of a request's pickup workflow
func PickupWorkflowID(requestID string) string {
	return "inbound-pickup-" + requestID
}

// InboundPickupWorkflow drives the pickup SLA of an inbound request:
// initiate pickup, wait for the courier, then wait for the warehouse receipt.
func InboundPickupWorkflow(ctx workflow.Context, input InboundPickupInput) (*InboundPickupResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting inbound pickup workflow", "requestId", input.RequestID)

	if input.PickupTimeout <= 0 {
		input.PickupTimeout = DefaultPickupTimeout
	}
	if input.ReceiptTimeout <= 0 {
		input.ReceiptTimeout = DefaultReceiptTimeout
	}

	result := &InboundPickupResult{RequestID: input.RequestID}
	ctx = workflow.WithActivityOptions(ctx, pkgtemporal.DefaultActivityOptions())

	var initiated InboundActivityResult
	if err := workflow.ExecuteActivity(ctx, pkgtemporal.ActivityNames.InitiatePickup, input.RequestID).Get(ctx, &initiated); err != nil {
		return nil, err
	}
	if initiated.Status == PickupStatusCompleted || initiated.Status == PickupStatusCancelled {
		logger.Info("Request already settled", "requestId", input.RequestID, "status", initiated.Status)
		result.Status = initiated.Status
		return result, nil
	}

	pickedUp := waitForSignal(ctx, pkgtemporal.SignalNames.PickedUp, input.PickupTimeout)
	if !pickedUp {
		logger.Warn("Pickup timed out", "requestId", input.RequestID, "timeout", input.PickupTimeout)

		var cancelled InboundActivityResult
		err := workflow.ExecuteActivity(ctx, pkgtemporal.ActivityNames.CancelInbound, CancelInboundInput{
			RequestID: input.RequestID,
			Reason:    PickupCancelReason,
		}).Get(ctx, &cancelled)
		if err != nil {
			return nil, err
		}
		result.Status = cancelled.Status
		return result, nil
	}

	received := waitForSignal(ctx, pkgtemporal.SignalNames.Received, input.ReceiptTimeout)
	if !received {
		logger.Warn("Receipt timed out", "requestId", input.RequestID, "timeout", input.ReceiptTimeout)
		result.Status = PickupStatusAwaitingReceipt
		return result, nil
	}

	var completed InboundActivityResult
	if err := workflow.ExecuteActivity(ctx, pkgtemporal.ActivityNames.CompleteInbound, input.RequestID).Get(ctx, &completed); err != nil {
		return nil, err
	}

	result.Status = completed.Status
	logger.Info("Inbound pickup workflow finished", "requestId", input.RequestID, "status", result.Status)
	return result, nil
}

// waitForSignal blocks until the named signal arrives or timeout elapses
func waitForSignal(ctx workflow.Context, name string, timeout time.Duration) bool {
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()

	var signalled bool
	selector := workflow.NewSelector(ctx)
	selector.AddReceive(workflow.GetSignalChannel(ctx, name), func(c workflow.ReceiveChannel, _ bool) {
		c.Receive(ctx, nil)
		signalled = true
	})
	selector.AddFuture(workflow.NewTimer(timerCtx, timeout), func(workflow.Future) {})
	selector.Select(ctx)
	return signalled
}
