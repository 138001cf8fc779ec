package sqlite

import (
	"context"
	"slices"
	"time"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
)

func statusStrings(statuses []types.PayoutStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}

func (d *Database) SaveNewPayout(ctx context.Context, doc *model.PayoutDocument) error {
	doc.SchemaVersion = model.SchemaVersion
	if err := d.conn(ctx).Create(doc).Error; err != nil {
		if isDuplicateKey(err) {
			return db.NewDuplicateKeyError(doc.ReferenceID, "payout already exists")
		}
		return err
	}
	return nil
}

func (d *Database) GetPayoutByID(ctx context.Context, id string) (*model.PayoutDocument, error) {
	return take[model.PayoutDocument](d.conn(ctx), id, "payout", "id = ?", id)
}

func (d *Database) GetPayoutByReferenceID(ctx context.Context, referenceID string) (*model.PayoutDocument, error) {
	return take[model.PayoutDocument](d.conn(ctx), referenceID, "payout", "reference_id = ?", referenceID)
}

func (d *Database) UpdatePayoutStatus(
	ctx context.Context,
	id string,
	qualifiedStatuses []types.PayoutStatus,
	newStatus types.PayoutStatus,
	opts ...db.UpdateOption,
) (*model.PayoutDocument, error) {
	notQualified := db.NewNotFoundError(id, "payout not found or current status is not qualified")

	var result *model.PayoutDocument
	err := d.WithTransaction(ctx, func(ctx context.Context) error {
		doc, err := d.GetPayoutByID(ctx, id)
		if err != nil {
			if db.IsNotFoundError(err) {
				return notQualified
			}
			return err
		}
		if !slices.Contains(qualifiedStatuses, doc.Status) {
			return notQualified
		}

		db.NewPayoutUpdate(opts...).Apply(doc, newStatus)
		res := d.conn(ctx).Model(doc).
			Where("status IN ?", statusStrings(qualifiedStatuses)).
			Select("*").
			Updates(doc)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notQualified
		}
		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Database) ListPayoutsByParticipant(
	ctx context.Context, poolID, participant string,
) ([]*model.PayoutDocument, error) {
	var docs []*model.PayoutDocument
	err := d.conn(ctx).
		Where("pool_id = ? AND participant = ?", poolID, participant).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (d *Database) HasOutstandingPayout(ctx context.Context, poolID, participant string) (bool, error) {
	var count int64
	err := d.conn(ctx).Model(&model.PayoutDocument{}).
		Where("pool_id = ? AND participant = ? AND status IN ?",
			poolID, participant, statusStrings(types.OutstandingPayoutStates())).
		Count(&count).Error
	return count > 0, err
}

func (d *Database) FindRetryablePayouts(
	ctx context.Context, since time.Time, maxRetries int, limit int64,
) ([]*model.PayoutDocument, error) {
	var docs []*model.PayoutDocument
	err := d.conn(ctx).
		Where("status = ? AND failed_at >= ? AND retry_count < ?",
			types.PayoutStatusFailed.String(), since, maxRetries).
		Order("failed_at").
		Limit(int(limit)).
		Find(&docs).Error
	return docs, err
}

func (d *Database) FindPayoutsByStatus(
	ctx context.Context, status types.PayoutStatus, limit int64,
) ([]*model.PayoutDocument, error) {
	var docs []*model.PayoutDocument
	err := d.conn(ctx).
		Where("status = ?", status.String()).
		Order("created_at").
		Limit(int(limit)).
		Find(&docs).Error
	return docs, err
}

func (d *Database) FindStuckPayouts(ctx context.Context, before time.Time, limit int64) ([]*model.PayoutDocument, error) {
	var docs []*model.PayoutDocument
	err := d.conn(ctx).
		Where("status = ? AND processed_at < ?", types.PayoutStatusProcessing.String(), before).
		Order("processed_at").
		Limit(int(limit)).
		Find(&docs).Error
	return docs, err
}

func (d *Database) GetPayoutThreshold(
	ctx context.Context, poolID, participant string,
) (*model.PayoutThresholdDocument, error) {
	key := model.ParticipantKey(poolID, participant)
	return take[model.PayoutThresholdDocument](d.conn(ctx), key, "payout threshold", "id = ?", key)
}

func (d *Database) SavePayoutThreshold(ctx context.Context, doc *model.PayoutThresholdDocument) error {
	return d.saveVersioned(ctx, model.PayoutThresholdCollection, doc)
}

func (d *Database) ListPayoutThresholds(
	ctx context.Context, poolID, afterID string, limit int64,
) ([]*model.PayoutThresholdDocument, error) {
	var docs []*model.PayoutThresholdDocument
	err := d.conn(ctx).
		Where("pool_id = ? AND id > ?", poolID, afterID).
		Order("id").
		Limit(int(limit)).
		Find(&docs).Error
	return docs, err
}
