package sqlite

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
)

func (d *Database) GetRewardState(ctx context.Context, poolID string) (*model.RewardStateDocument, error) {
	return take[model.RewardStateDocument](d.conn(ctx), poolID, "reward state", "id = ?", poolID)
}

func (d *Database) SaveRewardState(ctx context.Context, doc *model.RewardStateDocument) error {
	return d.saveVersioned(ctx, model.RewardStateCollection, doc)
}

func (d *Database) GetRewardEpoch(ctx context.Context, poolID string, number uint64) (*model.RewardEpochDocument, error) {
	key := model.EpochKey(poolID, number)
	return take[model.RewardEpochDocument](d.conn(ctx), key, "reward epoch", "id = ?", key)
}

func (d *Database) ListRewardEpochs(ctx context.Context, poolID string) ([]*model.RewardEpochDocument, error) {
	var docs []*model.RewardEpochDocument
	err := d.conn(ctx).Where("pool_id = ?", poolID).Order("number").Find(&docs).Error
	return docs, err
}

func (d *Database) SaveRewardEpoch(ctx context.Context, doc *model.RewardEpochDocument) error {
	return d.saveVersioned(ctx, model.RewardEpochCollection, doc, "end_time IS NULL")
}

func (d *Database) SaveEpochPaid(ctx context.Context, doc *model.RewardEpochDocument) error {
	expected := doc.GetVersion()
	doc.SetVersion(expected + 1)
	res := d.conn(ctx).Model(doc).
		Where("version = ? AND end_time IS NOT NULL", expected).
		Select("paid", "version", "schema_version").
		Updates(doc)
	if res.Error != nil {
		doc.SetVersion(expected)
		return res.Error
	}
	if res.RowsAffected == 0 {
		doc.SetVersion(expected)
		return db.NewConflictError(doc.ID, "reward epoch %s is open or changed since version %d", doc.ID, expected)
	}
	return nil
}

func (d *Database) SaveRewardSnapshot(ctx context.Context, doc *model.RewardSnapshotDocument) error {
	doc.SchemaVersion = model.SchemaVersion
	return d.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(doc).Error
}

func (d *Database) GetLatestRewardSnapshot(ctx context.Context, poolID string) (*model.RewardSnapshotDocument, error) {
	var docs []*model.RewardSnapshotDocument
	err := d.conn(ctx).Where("pool_id = ?", poolID).Order("taken_at DESC").Limit(1).Find(&docs).Error
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, notFound(poolID, "reward snapshot")
	}
	return docs[0], nil
}
