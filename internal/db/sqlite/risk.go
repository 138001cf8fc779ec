package sqlite

import (
	"context"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
)

func notFound(key, what string) error {
	return db.NewNotFoundError(key, "%s not found", what)
}

func (d *Database) GetRiskParameters(ctx context.Context, poolID string) (*model.RiskParametersDocument, error) {
	return take[model.RiskParametersDocument](d.conn(ctx), poolID, "risk parameters", "id = ?", poolID)
}

func (d *Database) SaveRiskParameters(ctx context.Context, doc *model.RiskParametersDocument) error {
	return d.saveVersioned(ctx, model.RiskParametersCollection, doc)
}

func (d *Database) GetCircuitBreaker(ctx context.Context, poolID string) (*model.CircuitBreakerDocument, error) {
	return take[model.CircuitBreakerDocument](d.conn(ctx), poolID, "circuit breaker", "id = ?", poolID)
}

func (d *Database) SaveCircuitBreaker(ctx context.Context, doc *model.CircuitBreakerDocument) error {
	return d.saveVersioned(ctx, model.CircuitBreakerCollection, doc)
}

func (d *Database) GetDailyWithdrawal(ctx context.Context, poolID string) (*model.DailyWithdrawalDocument, error) {
	return take[model.DailyWithdrawalDocument](d.conn(ctx), poolID, "daily withdrawal", "id = ?", poolID)
}

func (d *Database) SaveDailyWithdrawal(ctx context.Context, doc *model.DailyWithdrawalDocument) error {
	return d.saveVersioned(ctx, model.DailyWithdrawalCollection, doc)
}
