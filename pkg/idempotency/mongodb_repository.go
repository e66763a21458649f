package idempotency

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const keysCollection = "idempotency_keys"

// MongoKeyRepository implements KeyRepository using MongoDB
type MongoKeyRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoKeyRepository creates a new MongoDB-backed key repository
func NewMongoKeyRepository(db *mongo.Database) *MongoKeyRepository {
	return &MongoKeyRepository{collection: db.Collection(keysCollection), now: time.Now}
}

// AcquireLock upserts key by (serviceId, key). Concurrent upserts of the same key race on
// the unique index; the loser retries once and reads the winner's document.
func (r *MongoKeyRepository) AcquireLock(ctx context.Context, key *Key) (*Key, bool, error) {
	filter := bson.M{"serviceId": key.ServiceID, "key": key.Key}
	update := bson.M{"$setOnInsert": key}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored Key
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire idempotency key: %w", err)
	}
	return &stored, stored.ID == key.ID, nil
}

// StoreResponse completes the key with the response to replay
func (r *MongoKeyRepository) StoreResponse(ctx context.Context, id string, code int, body []byte, headers map[string]string) error {
	update := bson.M{"$set": bson.M{
		"responseCode":    code,
		"responseBody":    body,
		"responseHeaders": headers,
		"completedAt":     r.now().UTC(),
	}}
	if _, err := r.collection.UpdateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Release deletes an uncompleted key
func (r *MongoKeyRepository) Release(ctx context.Context, id string) error {
	filter := bson.M{"_id": id, "completedAt": bson.M{"$exists": false}}
	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique lookup index and the expiry TTL index
func (r *MongoKeyRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serviceId", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetName("idx_serviceId_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("idx_expiresAt_ttl").SetExpireAfterSeconds(0),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create idempotency indexes: %w", err)
	}
	return nil
}
