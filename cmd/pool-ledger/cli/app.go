package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/access"
	"github.com/viddhana/pool-ledger/internal/clients/transferclient"
	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/db"
	dbmodel "github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/db/sqlite"
	"github.com/viddhana/pool-ledger/internal/queue"
	"github.com/viddhana/pool-ledger/internal/services"
	"github.com/viddhana/pool-ledger/internal/types"
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	service *services.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp loads the config and builds the service. The queue publisher is
// only connected when withPublisher is set and a queue is configured.
func newApp(ctx context.Context, withPublisher bool) (*app, error) {
	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return nil, fmt.Errorf("error while loading config file %s: %w", GetConfigPath(), err)
	}
	a := &app{cfg: cfg}

	dbClient, err := openStore(ctx, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	var transfer transferclient.TransferInterface = transferclient.NewClient(&cfg.Transfer)
	transfer = transferclient.NewTransferClientWithMetrics(transfer)

	var publisher services.EventPublisher
	if withPublisher && cfg.Queue != nil {
		qm, err := queue.NewQueueManager(cfg.Queue)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize queue manager: %w", err)
		}
		a.closers = append(a.closers, qm.Shutdown)
		publisher = qm
	}

	a.service, err = services.NewService(
		cfg, dbClient, types.SystemClock{}, access.NewChecker(&cfg.Access), transfer, publisher,
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("error while creating service: %w", err)
	}
	return a, nil
}

func openStore(ctx context.Context, a *app) (db.DbInterface, error) {
	cfg := a.cfg
	switch cfg.Db.Driver {
	case config.DbDriverSqlite:
		store, err := sqlite.New(cfg.Db.SqlitePath)
		if err != nil {
			return nil, fmt.Errorf("error while opening sqlite store: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close sqlite store")
			}
		})
		return db.NewDbWithMetrics(store), nil
	default:
		if err := dbmodel.Setup(ctx, &cfg.Db); err != nil {
			return nil, fmt.Errorf("error while setting up db model: %w", err)
		}
		client, err := db.New(ctx, cfg.Db)
		if err != nil {
			return nil, fmt.Errorf("error while creating db client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to disconnect db client")
			}
		})
		return db.NewDbWithMetrics(client), nil
	}
}
