package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/facturio/invoicing-system/internal/core/ports"
)

const collectionSequences = "invoice_sequences"

// SequenceRepository issues the store-scoped counters shared by every
// device. Next is a single findOneAndUpdate with $inc: the backend performs
// the increment-and-read atomically, so two devices can never compute the
// same next number from a stale read.
type SequenceRepository struct {
	col *mongo.Collection
}

func NewSequenceRepository(db *mongo.Database) *SequenceRepository {
	return &SequenceRepository{col: db.Collection(collectionSequences)}
}

func (r *SequenceRepository) Next(ctx context.Context, key ports.SequenceKey) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"store_id": key.StoreID, "device_id": key.DeviceID}
	update := bson.M{
		"$inc": bson.M{"counter": int64(1)},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Counter int64 `bson:"counter"`
	}
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("mongo sequence next: %w", err)
	}
	return doc.Counter, nil
}

func (r *SequenceRepository) Current(ctx context.Context, key ports.SequenceKey) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc struct {
		Counter int64 `bson:"counter"`
	}
	err := r.col.FindOne(ctx, bson.M{"store_id": key.StoreID, "device_id": key.DeviceID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("mongo sequence current: %w", err)
	}
	return doc.Counter, nil
}

// EnsureIndexes makes the (store, device) pair unique so concurrent upserts
// converge on one counter document.
func (r *SequenceRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "store_id", Value: 1}, {Key: "device_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
