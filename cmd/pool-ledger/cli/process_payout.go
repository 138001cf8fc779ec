package cli

import (
	"github.com/spf13/cobra"

	"github.com/viddhana/pool-ledger/internal/types"
)

// ProcessPayoutCmd processes payouts by id, outside of the scheduled sweep:
// ./pool-ledger process-payout <id> [<id>...] --config config.yml
func ProcessPayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process-payout [payoutID...]",
		Short: "Process one or more pending payouts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  processPayout,
	}

	return cmd
}

func processPayout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.ProcessBatchPayout(ctx, args)
	if err != nil {
		return err
	}
	for _, id := range args {
		if p, ok := result.Payouts[id]; ok {
			cmd.Printf("%s\t%s\tnet %s\n", id, p.Status, types.FormatAmount(p.NetAmount))
		}
		if err, ok := result.Errors[id]; ok {
			cmd.Printf("%s\terror\t%s\n", id, err)
		}
	}
	return nil
}
