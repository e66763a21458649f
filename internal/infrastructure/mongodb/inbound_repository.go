package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	pkgmongo "github.com/wms-platform/fulfillment-service/pkg/mongodb"
)

// InboundRequestRepository implements domain.InboundRequestRepository using MongoDB
type InboundRequestRepository struct {
	collection *mongo.Collection
	tx         *pkgmongo.TxManager
	events     *eventWriter
}

// NewInboundRequestRepository creates a new InboundRequestRepository
func NewInboundRequestRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *InboundRequestRepository {
	collection := db.Collection("inbound_requests")

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "requestId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "merchantId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "type", Value: 1},
				{Key: "status", Value: 1},
			},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &InboundRequestRepository{
		collection: collection,
		tx:         pkgmongo.NewTxManager(db.Client()),
		events:     newEventWriter(db, eventFactory),
	}
}

// Save persists a request with its domain events in a single transaction
func (r *InboundRequestRepository) Save(ctx context.Context, req *domain.InboundRequest) error {
	owned := mongo.SessionFromContext(ctx) == nil
	err := r.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"requestId": req.RequestID}
		update := bson.M{"$set": req}

		if _, err := r.collection.UpdateOne(txCtx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to save inbound request: %w", err)
		}

		return r.events.write(txCtx, req.RequestID, AggregateInbound, req.DomainEvents())
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	// a joined transaction may still be retried by its owner
	if owned {
		req.ClearDomainEvents()
	}
	return nil
}

// AttachWorkflow sets workflowId only, so it cannot roll back a status written concurrently
func (r *InboundRequestRepository) AttachWorkflow(ctx context.Context, requestID, workflowID string) error {
	filter := bson.M{"requestId": requestID}
	update := bson.M{"$set": bson.M{"workflowId": workflowID}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to attach pickup workflow: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("failed to attach pickup workflow: inbound request %s not found", requestID)
	}
	return nil
}

// FindByID retrieves a request by its RequestID
func (r *InboundRequestRepository) FindByID(ctx context.Context, requestID string) (*domain.InboundRequest, error) {
	var req domain.InboundRequest
	err := r.collection.FindOne(ctx, bson.M{"requestId": requestID}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inbound request: %w", err)
	}
	return &req, nil
}

// Find retrieves requests matching the filter, newest first
func (r *InboundRequestRepository) Find(ctx context.Context, filter domain.InboundFilter, pagination domain.Pagination) ([]*domain.InboundRequest, error) {
	pagination = pagination.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "requestId", Value: 1}}).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, buildInboundFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find inbound requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*domain.InboundRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode inbound requests: %w", err)
	}
	return requests, nil
}

// Count returns the number of requests matching the filter
func (r *InboundRequestRepository) Count(ctx context.Context, filter domain.InboundFilter) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, buildInboundFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count inbound requests: %w", err)
	}
	return count, nil
}

func buildInboundFilter(filter domain.InboundFilter) bson.M {
	query := bson.M{}
	if filter.MerchantID != nil {
		query["merchantId"] = *filter.MerchantID
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.Type != nil {
		query["type"] = *filter.Type
	}
	return query
}
