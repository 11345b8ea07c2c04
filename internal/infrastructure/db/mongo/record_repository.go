package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

// RecordRepository is the remote adapter for one entity kind, backed by the
// collection named after the kind. It satisfies ports.RemoteRepository;
// remote documents carry no sync marker.
type RecordRepository[T domain.Record] struct {
	col *mongo.Collection
}

func NewRecordRepository[T domain.Record](db *mongo.Database, kind domain.Kind) *RecordRepository[T] {
	return &RecordRepository[T]{col: db.Collection(string(kind))}
}

func (r *RecordRepository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec T
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, domain.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("mongo get: %w", err)
	}
	return rec, nil
}

func (r *RecordRepository[T]) List(ctx context.Context, filter ports.RecordFilter) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{"owner_id": filter.OwnerID}
	if filter.StoreID != "" {
		// Legacy pass-through: documents without a store match any store.
		query["$or"] = bson.A{
			bson.M{"store_id": filter.StoreID},
			bson.M{"store_id": bson.M{"$in": bson.A{"", nil}}},
		}
	}
	for field, value := range filter.Fields {
		query[field] = value
	}

	cur, err := r.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo list: decode: %w", err)
	}
	return out, nil
}

func (r *RecordRepository[T]) Add(ctx context.Context, rec T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateID
		}
		return fmt.Errorf("mongo add: %w", err)
	}
	return nil
}

// Update applies the patch as a $set: unnamed fields are untouched.
func (r *RecordRepository[T]) Update(ctx context.Context, id string, patch domain.Patch) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range patch {
		if k == "_id" || k == "id" {
			continue
		}
		set[k] = v
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Upsert inserts or replaces by id. Reconciliation relies on this being
// idempotent: pushing the same record twice leaves one document.
func (r *RecordRepository[T]) Upsert(ctx context.Context, rec T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.ReplaceOne(ctx,
		bson.M{"_id": rec.RecordID()}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert: %w", err)
	}
	return nil
}

// EnsureIndexes creates the query indexes for this kind's collection.
func (r *RecordRepository[T]) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "store_id", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
