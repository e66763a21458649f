package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

// ProductRepository implements domain.ProductRepository using MongoDB
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *mongo.Database) *ProductRepository {
	collection := db.Collection("products")

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "merchantId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &ProductRepository{collection: collection}
}

// Save upserts a product
func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"productId": product.ProductID}
	update := bson.M{"$set": product}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// FindByID retrieves a product by its ProductID
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, bson.M{"productId": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

// FindByIDs retrieves the products that exist among productIDs
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) ([]*domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	return r.findMany(ctx, bson.M{"productId": bson.M{"$in": productIDs}}, options.Find())
}

// FindByMerchant retrieves a merchant's products, newest first
func (r *ProductRepository) FindByMerchant(ctx context.Context, merchantID string, pagination domain.Pagination) ([]*domain.Product, error) {
	pagination = pagination.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "productId", Value: 1}}).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	return r.findMany(ctx, bson.M{"merchantId": merchantID}, opts)
}

// CountByMerchant returns the number of products a merchant owns
func (r *ProductRepository) CountByMerchant(ctx context.Context, merchantID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"merchantId": merchantID})
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (r *ProductRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Product, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*domain.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}
