package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/viddhana/pool-ledger/internal/types"
)

// StartEpochCmd opens a new reward epoch, closing the current one:
// ./pool-ledger start-epoch main 100 --period 24h --actor alice
func StartEpochCmd() *cobra.Command {
	var period time.Duration
	cmd := &cobra.Command{
		Use:   "start-epoch [poolID] [amount]",
		Short: "Start a reward epoch distributing amount per period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return startEpoch(cmd, args, period)
		},
	}
	cmd.Flags().DurationVar(&period, "period", 24*time.Hour, "period the amount is distributed over")

	return cmd
}

func startEpoch(cmd *cobra.Command, args []string, period time.Duration) error {
	ctx := cmd.Context()

	amount, err := types.ParseAmount(args[1])
	if err != nil {
		return err
	}
	rate, err := types.RatePerSecond(amount, period)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	epoch, err := a.service.StartEpoch(ctx, actor, args[0], rate)
	if err != nil {
		return err
	}
	cmd.Printf("epoch %d started on pool %s at %s per second\n", epoch.Number, epoch.PoolID, types.FormatAmount(epoch.Rate))
	return nil
}
