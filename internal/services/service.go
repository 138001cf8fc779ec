package services

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/viddhana/pool-ledger/internal/access"
	"github.com/viddhana/pool-ledger/internal/clients/transferclient"
	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/queue"
	"github.com/viddhana/pool-ledger/internal/types"
	"github.com/viddhana/pool-ledger/internal/utils"
)

// EventPublisher delivers outbox events to the outside world.
type EventPublisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service is the ledger core: share accounting, risk controls, reward
// distribution and payouts. Every exported operation returns a *types.Error
// for expected business failures and an INTERNAL_SERVICE_ERROR for
// infrastructure faults.
type Service struct {
	cfg       *config.Config
	db        db.DbInterface
	clock     types.Clock
	access    access.RoleChecker
	transfer  transferclient.TransferInterface
	publisher EventPublisher

	fees       *config.FeeSchedule
	btcParams  *chaincfg.Params
	windowMode types.WithdrawalWindowMode
}

// NewService wires the core. publisher may be nil, events then stay in the
// outbox until a relay with a publisher runs.
func NewService(
	cfg *config.Config,
	db db.DbInterface,
	clock types.Clock,
	checker access.RoleChecker,
	transfer transferclient.TransferInterface,
	publisher EventPublisher,
) (*Service, error) {
	fees, err := cfg.Payout.Fees()
	if err != nil {
		return nil, fmt.Errorf("invalid fee schedule: %w", err)
	}

	btcParams, err := utils.GetBTCParams(cfg.BTC.NetParams)
	if err != nil {
		return nil, err
	}

	if clock == nil {
		clock = types.SystemClock{}
	}

	return &Service{
		cfg:        cfg,
		db:         db,
		clock:      clock,
		access:     checker,
		transfer:   transfer,
		publisher:  publisher,
		fees:       fees,
		btcParams:  btcParams,
		windowMode: cfg.Risk.Mode(),
	}, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
