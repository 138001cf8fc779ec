package cli

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/observability/tracing"
	"github.com/viddhana/pool-ledger/internal/services"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the pool ledger scheduler, outbox relay and metrics server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	a, err := newApp(ctx, true)
	if err != nil {
		log.Fatal().Err(err).Msg("error while starting pool ledger")
	}
	defer a.Close()

	// initialize metrics with the metrics port from config
	metrics.Init(a.cfg.Metrics.GetMetricsPort())

	scheduler := services.NewScheduler(a.service)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("error while starting scheduler")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	scheduler.Stop()
	return nil
}
