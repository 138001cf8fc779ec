package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/viddhana/pool-ledger/internal/db/model"
)

func (db *Database) GetRiskParameters(ctx context.Context, poolID string) (*model.RiskParametersDocument, error) {
	return findOne[model.RiskParametersDocument](
		ctx, db.collection(model.RiskParametersCollection), bson.M{"_id": poolID}, poolID, "risk parameters",
	)
}

func (db *Database) SaveRiskParameters(ctx context.Context, doc *model.RiskParametersDocument) error {
	return db.saveVersioned(ctx, model.RiskParametersCollection, doc, nil)
}

func (db *Database) GetCircuitBreaker(ctx context.Context, poolID string) (*model.CircuitBreakerDocument, error) {
	return findOne[model.CircuitBreakerDocument](
		ctx, db.collection(model.CircuitBreakerCollection), bson.M{"_id": poolID}, poolID, "circuit breaker",
	)
}

func (db *Database) SaveCircuitBreaker(ctx context.Context, doc *model.CircuitBreakerDocument) error {
	return db.saveVersioned(ctx, model.CircuitBreakerCollection, doc, nil)
}

func (db *Database) GetDailyWithdrawal(ctx context.Context, poolID string) (*model.DailyWithdrawalDocument, error) {
	return findOne[model.DailyWithdrawalDocument](
		ctx, db.collection(model.DailyWithdrawalCollection), bson.M{"_id": poolID}, poolID, "daily withdrawal",
	)
}

func (db *Database) SaveDailyWithdrawal(ctx context.Context, doc *model.DailyWithdrawalDocument) error {
	return db.saveVersioned(ctx, model.DailyWithdrawalCollection, doc, nil)
}
