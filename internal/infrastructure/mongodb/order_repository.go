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

// OrderRepository implements domain.OrderRepository using MongoDB
type OrderRepository struct {
	collection *mongo.Collection
	tx         *pkgmongo.TxManager
	events     *eventWriter
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *OrderRepository {
	collection := db.Collection("orders")

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
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
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "returnType", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &OrderRepository{
		collection: collection,
		tx:         pkgmongo.NewTxManager(db.Client()),
		events:     newEventWriter(db, eventFactory),
	}
}

// Save persists an order with its domain events in a single transaction
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	owned := mongo.SessionFromContext(ctx) == nil
	err := r.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"orderId": order.OrderID}
		update := bson.M{"$set": order}

		if _, err := r.collection.UpdateOne(txCtx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}

		return r.events.write(txCtx, order.OrderID, AggregateOrder, order.DomainEvents())
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	// a joined transaction may still be retried by its owner
	if owned {
		order.ClearDomainEvents()
	}
	return nil
}

// FindByID retrieves an order by its OrderID
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// Find retrieves orders matching the filter, newest first
func (r *OrderRepository) Find(ctx context.Context, filter domain.OrderFilter, pagination domain.Pagination) ([]*domain.Order, error) {
	pagination = pagination.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "orderId", Value: 1}}).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, buildOrderFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// Count returns the number of orders matching the filter
func (r *OrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, buildOrderFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

func buildOrderFilter(filter domain.OrderFilter) bson.M {
	query := bson.M{}
	if filter.MerchantID != nil {
		query["merchantId"] = *filter.MerchantID
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.ReturnType != nil {
		query["returnType"] = *filter.ReturnType
	}
	return query
}
