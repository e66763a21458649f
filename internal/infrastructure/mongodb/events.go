package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/kafka"
	"github.com/wms-platform/fulfillment-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/fulfillment-service/pkg/outbox/mongodb"
)

const indexTimeout = 10 * time.Second

// Aggregate types recorded on outbox events
const (
	AggregateOrder     = "Order"
	AggregateInbound   = "InboundRequest"
	AggregateInventory = "InventoryRecord"
)

// eventWriter turns domain events into outbox records written with the
// caller's context, so they commit with the aggregate
type eventWriter struct {
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func newEventWriter(db *mongo.Database, eventFactory *cloudevents.EventFactory) *eventWriter {
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	_ = outboxRepo.EnsureIndexes(ctx)

	return &eventWriter{outboxRepo: outboxRepo, eventFactory: eventFactory}
}

// eventSubject returns the CloudEvent subject and owning merchant of a domain event
func eventSubject(event domain.DomainEvent) (subject, merchantID string, ok bool) {
	switch e := event.(type) {
	case *domain.OrderCreatedEvent:
		return "order/" + e.OrderID, e.MerchantID, true
	case *domain.OrderPackedEvent:
		return "order/" + e.OrderID, e.MerchantID, true
	case *domain.OrderDispatchedEvent:
		return "order/" + e.OrderID, e.MerchantID, true
	case *domain.OrderDeliveredEvent:
		return "order/" + e.OrderID, e.MerchantID, true
	case *domain.OrderCancelledEvent:
		return "order/" + e.OrderID, e.MerchantID, true
	case *domain.ReturnOrderCreatedEvent:
		return "order/" + e.OrderID, e.MerchantID, true
	case *domain.InboundCreatedEvent:
		return "inbound/" + e.RequestID, e.MerchantID, true
	case *domain.InboundStatusChangedEvent:
		return "inbound/" + e.RequestID, e.MerchantID, true
	case *domain.InboundCompletedEvent:
		return "inbound/" + e.RequestID, e.MerchantID, true
	case *domain.StockMovedEvent:
		return inventorySubject(e.MerchantID, e.ProductID), e.MerchantID, true
	case *domain.LowStockAlertEvent:
		return inventorySubject(e.MerchantID, e.ProductID), e.MerchantID, true
	default:
		return "", "", false
	}
}

func inventorySubject(merchantID, productID string) string {
	return "inventory/" + merchantID + "/" + productID
}

// toOutboxEvents converts domain events, routing each to its family topic
func (w *eventWriter) toOutboxEvents(ctx context.Context, aggregateID, aggregateType string, events []domain.DomainEvent) ([]*outbox.OutboxEvent, error) {
	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		subject, merchantID, ok := eventSubject(event)
		if !ok {
			continue
		}

		cloudEvent := w.eventFactory.CreateMerchantEvent(ctx, event.EventType(), subject, merchantID, event)
		cloudEvent.Time = event.OccurredAt().UTC()

		outboxEvent, err := outbox.NewOutboxEvent(aggregateID, aggregateType, kafka.TopicForEventType(event.EventType()), cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	return outboxEvents, nil
}

// write stores the outbox records of events
func (w *eventWriter) write(ctx context.Context, aggregateID, aggregateType string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	outboxEvents, err := w.toOutboxEvents(ctx, aggregateID, aggregateType, events)
	if err != nil {
		return err
	}
	if len(outboxEvents) == 0 {
		return nil
	}
	if err := w.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}
