package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitPoolCmd creates the pool described by the pool section of the config:
// ./pool-ledger init-pool --actor alice --config config.yml
func InitPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-pool",
		Short: "Create the pool configured in the pool section",
		Args:  cobra.ExactArgs(0),
		RunE:  initPool,
	}

	return cmd
}

func initPool(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Pool.ID == "" {
		return fmt.Errorf("no pool configured")
	}
	limits, err := a.cfg.Pool.RiskParameters()
	if err != nil {
		return err
	}

	pool, err := a.service.CreatePool(ctx, actor, a.cfg.Pool.ID, a.cfg.Pool.Asset, limits)
	if err != nil {
		return err
	}
	cmd.Printf("pool %s created for %s\n", pool.ID, pool.Asset)
	return nil
}
