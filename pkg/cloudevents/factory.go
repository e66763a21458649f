package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

// EventFactory creates CloudEvents for a single source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent wraps data in a CloudEvent. The correlation ID is taken from ctx.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data any) *CloudEvent {
	return &CloudEvent{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		CorrelationID:   logging.CorrelationIDFromContext(ctx),
	}
}

// CreateMerchantEvent creates an event tagged with the owning merchant
func (f *EventFactory) CreateMerchantEvent(ctx context.Context, eventType, subject, merchantID string, data any) *CloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.MerchantID = merchantID
	return event
}

// WithWorkflow sets the orchestrating workflow ID and returns the event
func (e *CloudEvent) WithWorkflow(workflowID string) *CloudEvent {
	e.WorkflowID = workflowID
	return e
}
