package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viddhana/pool-ledger/internal/db/model"
)

func (db *Database) GetRewardState(ctx context.Context, poolID string) (*model.RewardStateDocument, error) {
	return findOne[model.RewardStateDocument](
		ctx, db.collection(model.RewardStateCollection), bson.M{"_id": poolID}, poolID, "reward state",
	)
}

func (db *Database) SaveRewardState(ctx context.Context, doc *model.RewardStateDocument) error {
	return db.saveVersioned(ctx, model.RewardStateCollection, doc, nil)
}

func (db *Database) GetRewardEpoch(ctx context.Context, poolID string, number uint64) (*model.RewardEpochDocument, error) {
	key := model.EpochKey(poolID, number)
	return findOne[model.RewardEpochDocument](
		ctx, db.collection(model.RewardEpochCollection), bson.M{"_id": key}, key, "reward epoch",
	)
}

func (db *Database) ListRewardEpochs(ctx context.Context, poolID string) ([]*model.RewardEpochDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	return findMany[model.RewardEpochDocument](
		ctx, db.collection(model.RewardEpochCollection), bson.M{"pool_id": poolID}, opts,
	)
}

func (db *Database) SaveRewardEpoch(ctx context.Context, doc *model.RewardEpochDocument) error {
	// a stored end_time means the epoch is closed and can no longer change
	return db.saveVersioned(ctx, model.RewardEpochCollection, doc, bson.M{"end_time": nil})
}

func (db *Database) SaveEpochPaid(ctx context.Context, doc *model.RewardEpochDocument) error {
	expected := doc.GetVersion()
	res, err := db.collection(model.RewardEpochCollection).UpdateOne(
		ctx,
		bson.M{"_id": doc.ID, "version": expected, "end_time": bson.M{"$ne": nil}},
		bson.M{"$set": bson.M{
			"paid":           doc.Paid,
			"version":        expected + 1,
			"schema_version": model.SchemaVersion,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return NewConflictError(doc.ID, "reward epoch %s is open or changed since version %d", doc.ID, expected)
	}
	doc.SetVersion(expected + 1)
	return nil
}

func (db *Database) SaveRewardSnapshot(ctx context.Context, doc *model.RewardSnapshotDocument) error {
	doc.SchemaVersion = model.SchemaVersion
	_, err := db.collection(model.RewardSnapshotCollection).ReplaceOne(
		ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true),
	)
	return err
}

func (db *Database) GetLatestRewardSnapshot(ctx context.Context, poolID string) (*model.RewardSnapshotDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "taken_at", Value: -1}}).SetLimit(1)
	docs, err := findMany[model.RewardSnapshotDocument](
		ctx, db.collection(model.RewardSnapshotCollection), bson.M{"pool_id": poolID}, opts,
	)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, NewNotFoundError(poolID, "reward snapshot not found")
	}
	return docs[0], nil
}
