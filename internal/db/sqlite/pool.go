package sqlite

import (
	"context"

	"github.com/viddhana/pool-ledger/internal/db/model"
)

func (d *Database) GetPool(ctx context.Context, poolID string) (*model.PoolDocument, error) {
	return take[model.PoolDocument](d.conn(ctx), poolID, "pool", "id = ?", poolID)
}

func (d *Database) ListPools(ctx context.Context) ([]*model.PoolDocument, error) {
	var docs []*model.PoolDocument
	err := d.conn(ctx).Order("id").Find(&docs).Error
	return docs, err
}

func (d *Database) SavePool(ctx context.Context, doc *model.PoolDocument) error {
	return d.saveVersioned(ctx, model.PoolCollection, doc)
}

func (d *Database) GetParticipantBalance(
	ctx context.Context, poolID, participant string,
) (*model.ParticipantBalanceDocument, error) {
	key := model.ParticipantKey(poolID, participant)
	return take[model.ParticipantBalanceDocument](d.conn(ctx), key, "participant balance", "id = ?", key)
}

func (d *Database) SaveParticipantBalance(ctx context.Context, doc *model.ParticipantBalanceDocument) error {
	return d.saveVersioned(ctx, model.ParticipantBalanceCollection, doc)
}

func (d *Database) GetTreasury(ctx context.Context, poolID string) (*model.TreasuryDocument, error) {
	return take[model.TreasuryDocument](d.conn(ctx), poolID, "treasury", "id = ?", poolID)
}

func (d *Database) SaveTreasury(ctx context.Context, doc *model.TreasuryDocument) error {
	return d.saveVersioned(ctx, model.TreasuryCollection, doc)
}
