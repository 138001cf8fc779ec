package sqlite

import (
	"context"
	"time"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
)

func (d *Database) SaveOutboxEvent(ctx context.Context, doc *model.OutboxEventDocument) error {
	doc.SchemaVersion = model.SchemaVersion
	return d.conn(ctx).Create(doc).Error
}

func (d *Database) FindUnpublishedEvents(ctx context.Context, limit int64) ([]*model.OutboxEventDocument, error) {
	var docs []*model.OutboxEventDocument
	err := d.conn(ctx).
		Where("published_at IS NULL").
		Order("id").
		Limit(int(limit)).
		Find(&docs).Error
	return docs, err
}

func (d *Database) MarkEventPublished(ctx context.Context, id string, at time.Time) error {
	res := d.conn(ctx).Model(&model.OutboxEventDocument{}).
		Where("id = ? AND published_at IS NULL", id).
		Update("published_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.NewNotFoundError(id, "outbox event not found or already published")
	}
	return nil
}
