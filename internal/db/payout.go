package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
)

func (db *Database) SaveNewPayout(ctx context.Context, doc *model.PayoutDocument) error {
	doc.SchemaVersion = model.SchemaVersion
	_, err := db.collection(model.PayoutCollection).InsertOne(ctx, doc)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return NewDuplicateKeyError(doc.ReferenceID, "payout already exists")
				}
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetPayoutByID(ctx context.Context, id string) (*model.PayoutDocument, error) {
	return findOne[model.PayoutDocument](ctx, db.collection(model.PayoutCollection), bson.M{"_id": id}, id, "payout")
}

func (db *Database) GetPayoutByReferenceID(ctx context.Context, referenceID string) (*model.PayoutDocument, error) {
	return findOne[model.PayoutDocument](
		ctx, db.collection(model.PayoutCollection), bson.M{"reference_id": referenceID}, referenceID, "payout",
	)
}

func (db *Database) UpdatePayoutStatus(
	ctx context.Context,
	id string,
	qualifiedStatuses []types.PayoutStatus,
	newStatus types.PayoutStatus,
	opts ...UpdateOption,
) (*model.PayoutDocument, error) {
	qualifiedStatusStrs := make([]string, len(qualifiedStatuses))
	for i, status := range qualifiedStatuses {
		qualifiedStatusStrs[i] = status.String()
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": qualifiedStatusStrs},
	}

	u := NewPayoutUpdate(opts...)
	set := bson.M{"status": newStatus.String()}
	if u.Fee != nil {
		set["fee"] = *u.Fee
		set["net_amount"] = *u.NetAmount
	}
	if u.QuotaWindow != nil {
		set["quota_window"] = *u.QuotaWindow
	}
	if u.ClearQuotaWindow {
		set["quota_window"] = nil
	}
	if u.TransferRef != nil {
		set["transfer_ref"] = *u.TransferRef
	}
	if u.ErrorMessage != nil {
		set["error_message"] = *u.ErrorMessage
	}
	if u.FailureKind != nil {
		set["failure_kind"] = u.FailureKind.String()
	}
	if u.ClearError {
		set["error_message"] = nil
		set["failure_kind"] = ""
		set["failed_at"] = nil
	}
	if u.ProcessedAt != nil {
		set["processed_at"] = *u.ProcessedAt
	}
	if u.ConfirmedAt != nil {
		set["confirmed_at"] = *u.ConfirmedAt
	}
	if u.FailedAt != nil {
		set["failed_at"] = *u.FailedAt
	}
	if u.CancelledAt != nil {
		set["cancelled_at"] = *u.CancelledAt
	}

	update := bson.M{"$set": set}
	if u.IncRetryCount {
		update["$inc"] = bson.M{"retry_count": 1}
	}

	var doc model.PayoutDocument
	err := db.collection(model.PayoutCollection).
		FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError(id, "payout not found or current status is not qualified")
		}
		return nil, err
	}
	return &doc, nil
}

func (db *Database) ListPayoutsByParticipant(
	ctx context.Context, poolID, participant string,
) ([]*model.PayoutDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.PayoutDocument](
		ctx, db.collection(model.PayoutCollection),
		bson.M{"pool_id": poolID, "participant": participant}, opts,
	)
}

func (db *Database) HasOutstandingPayout(ctx context.Context, poolID, participant string) (bool, error) {
	states := make([]string, 0, 2)
	for _, s := range types.OutstandingPayoutStates() {
		states = append(states, s.String())
	}
	count, err := db.collection(model.PayoutCollection).CountDocuments(ctx, bson.M{
		"pool_id":     poolID,
		"participant": participant,
		"status":      bson.M{"$in": states},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *Database) FindRetryablePayouts(
	ctx context.Context, since time.Time, maxRetries int, limit int64,
) ([]*model.PayoutDocument, error) {
	filter := bson.M{
		"status":      types.PayoutStatusFailed.String(),
		"failed_at":   bson.M{"$gte": since},
		"retry_count": bson.M{"$lt": maxRetries},
	}
	opts := options.Find().SetSort(bson.D{{Key: "failed_at", Value: 1}}).SetLimit(limit)
	return findMany[model.PayoutDocument](ctx, db.collection(model.PayoutCollection), filter, opts)
}

func (db *Database) FindPayoutsByStatus(
	ctx context.Context, status types.PayoutStatus, limit int64,
) ([]*model.PayoutDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(limit)
	return findMany[model.PayoutDocument](
		ctx, db.collection(model.PayoutCollection), bson.M{"status": status.String()}, opts,
	)
}

func (db *Database) FindStuckPayouts(ctx context.Context, before time.Time, limit int64) ([]*model.PayoutDocument, error) {
	filter := bson.M{
		"status":       types.PayoutStatusProcessing.String(),
		"processed_at": bson.M{"$lt": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "processed_at", Value: 1}}).SetLimit(limit)
	return findMany[model.PayoutDocument](ctx, db.collection(model.PayoutCollection), filter, opts)
}

func (db *Database) GetPayoutThreshold(
	ctx context.Context, poolID, participant string,
) (*model.PayoutThresholdDocument, error) {
	key := model.ParticipantKey(poolID, participant)
	return findOne[model.PayoutThresholdDocument](
		ctx, db.collection(model.PayoutThresholdCollection), bson.M{"_id": key}, key, "payout threshold",
	)
}

func (db *Database) SavePayoutThreshold(ctx context.Context, doc *model.PayoutThresholdDocument) error {
	return db.saveVersioned(ctx, model.PayoutThresholdCollection, doc, nil)
}

func (db *Database) ListPayoutThresholds(
	ctx context.Context, poolID, afterID string, limit int64,
) ([]*model.PayoutThresholdDocument, error) {
	filter := bson.M{"pool_id": poolID}
	if afterID != "" {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(limit)
	return findMany[model.PayoutThresholdDocument](ctx, db.collection(model.PayoutThresholdCollection), filter, opts)
}
