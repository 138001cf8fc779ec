package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viddhana/pool-ledger/internal/db/model"
)

func (db *Database) GetPool(ctx context.Context, poolID string) (*model.PoolDocument, error) {
	return findOne[model.PoolDocument](ctx, db.collection(model.PoolCollection), bson.M{"_id": poolID}, poolID, "pool")
}

func (db *Database) ListPools(ctx context.Context) ([]*model.PoolDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findMany[model.PoolDocument](ctx, db.collection(model.PoolCollection), bson.M{}, opts)
}

func (db *Database) SavePool(ctx context.Context, doc *model.PoolDocument) error {
	return db.saveVersioned(ctx, model.PoolCollection, doc, nil)
}

func (db *Database) GetParticipantBalance(
	ctx context.Context, poolID, participant string,
) (*model.ParticipantBalanceDocument, error) {
	key := model.ParticipantKey(poolID, participant)
	return findOne[model.ParticipantBalanceDocument](
		ctx, db.collection(model.ParticipantBalanceCollection), bson.M{"_id": key}, key, "participant balance",
	)
}

func (db *Database) SaveParticipantBalance(ctx context.Context, doc *model.ParticipantBalanceDocument) error {
	return db.saveVersioned(ctx, model.ParticipantBalanceCollection, doc, nil)
}

func (db *Database) GetTreasury(ctx context.Context, poolID string) (*model.TreasuryDocument, error) {
	return findOne[model.TreasuryDocument](ctx, db.collection(model.TreasuryCollection), bson.M{"_id": poolID}, poolID, "treasury")
}

func (db *Database) SaveTreasury(ctx context.Context, doc *model.TreasuryDocument) error {
	return db.saveVersioned(ctx, model.TreasuryCollection, doc, nil)
}
