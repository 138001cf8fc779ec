package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viddhana/pool-ledger/internal/db/model"
)

func (db *Database) SaveOutboxEvent(ctx context.Context, doc *model.OutboxEventDocument) error {
	doc.SchemaVersion = model.SchemaVersion
	_, err := db.collection(model.OutboxEventCollection).InsertOne(ctx, doc)
	return err
}

func (db *Database) FindUnpublishedEvents(ctx context.Context, limit int64) ([]*model.OutboxEventDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(limit)
	return findMany[model.OutboxEventDocument](
		ctx, db.collection(model.OutboxEventCollection), bson.M{"published_at": nil}, opts,
	)
}

func (db *Database) MarkEventPublished(ctx context.Context, id string, at time.Time) error {
	res, err := db.collection(model.OutboxEventCollection).UpdateOne(
		ctx,
		bson.M{"_id": id, "published_at": nil},
		bson.M{"$set": bson.M{"published_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return NewNotFoundError(id, "outbox event not found or already published")
	}
	return nil
}
