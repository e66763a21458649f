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

// InventoryRepository implements domain.InventoryRepository using MongoDB
type InventoryRepository struct {
	collection *mongo.Collection
	tx         *pkgmongo.TxManager
	events     *eventWriter
}

// NewInventoryRepository creates a new InventoryRepository
func NewInventoryRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *InventoryRepository {
	collection := db.Collection("inventory")

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "merchantId", Value: 1},
				{Key: "productId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "merchantId", Value: 1},
				{Key: "minStockLevel", Value: 1},
			},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &InventoryRepository{
		collection: collection,
		tx:         pkgmongo.NewTxManager(db.Client()),
		events:     newEventWriter(db, eventFactory),
	}
}

func recordFilter(productID, merchantID string) bson.M {
	return bson.M{"merchantId": merchantID, "productId": productID}
}

// SaveAll upserts the records and writes their domain events to the outbox
func (r *InventoryRepository) SaveAll(ctx context.Context, records []*domain.InventoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	owned := mongo.SessionFromContext(ctx) == nil
	err := r.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		models := make([]mongo.WriteModel, 0, len(records))
		for _, record := range records {
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(recordFilter(record.ProductID, record.MerchantID)).
				SetUpdate(bson.M{"$set": record}).
				SetUpsert(true))
		}

		if _, err := r.collection.BulkWrite(txCtx, models, options.BulkWrite().SetOrdered(true)); err != nil {
			return fmt.Errorf("failed to save inventory: %w", err)
		}

		for _, record := range records {
			aggregateID := inventorySubject(record.MerchantID, record.ProductID)
			if err := r.events.write(txCtx, aggregateID, AggregateInventory, record.DomainEvents()); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if owned {
		for _, record := range records {
			record.ClearDomainEvents()
		}
	}
	return nil
}

// FindByKey retrieves one record
func (r *InventoryRepository) FindByKey(ctx context.Context, productID, merchantID string) (*domain.InventoryRecord, error) {
	var record domain.InventoryRecord
	err := r.collection.FindOne(ctx, recordFilter(productID, merchantID)).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inventory record: %w", err)
	}
	return &record, nil
}

// FindByProducts retrieves the merchant's records for the given products
func (r *InventoryRepository) FindByProducts(ctx context.Context, merchantID string, productIDs []string) ([]*domain.InventoryRecord, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"merchantId": merchantID,
		"productId":  bson.M{"$in": productIDs},
	}
	return r.findMany(ctx, filter, options.Find())
}

// FindByMerchant retrieves the records of a merchant ordered by product
func (r *InventoryRepository) FindByMerchant(ctx context.Context, merchantID string, pagination domain.Pagination) ([]*domain.InventoryRecord, error) {
	pagination = pagination.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "productId", Value: 1}}).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	return r.findMany(ctx, bson.M{"merchantId": merchantID}, opts)
}

// CountByMerchant returns the number of records of a merchant
func (r *InventoryRepository) CountByMerchant(ctx context.Context, merchantID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"merchantId": merchantID})
	if err != nil {
		return 0, fmt.Errorf("failed to count inventory: %w", err)
	}
	return count, nil
}

// FindLowStock retrieves records with a minimum level whose quantity is at or below it
func (r *InventoryRepository) FindLowStock(ctx context.Context, merchantID string) ([]*domain.InventoryRecord, error) {
	filter := bson.M{
		"merchantId":    merchantID,
		"minStockLevel": bson.M{"$gt": 0},
		"$expr":         bson.M{"$lte": bson.A{"$quantity", "$minStockLevel"}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "productId", Value: 1}})
	return r.findMany(ctx, filter, opts)
}

func (r *InventoryRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.InventoryRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find inventory: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.InventoryRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	return records, nil
}
