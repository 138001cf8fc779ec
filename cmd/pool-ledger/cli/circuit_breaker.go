package cli

import (
	"github.com/spf13/cobra"
)

func CircuitBreakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circuit-breaker",
		Short: "Trigger or reset the circuit breaker of a pool",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "trigger [poolID] [reason]",
		Short: "Halt every value moving operation on the pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.service.TriggerCircuitBreaker(ctx, actor, args[0], args[1]); err != nil {
				return err
			}
			cmd.Printf("circuit breaker of pool %s is active\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset [poolID]",
		Short: "Resume value moving operations on the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.service.ResetCircuitBreaker(ctx, actor, args[0]); err != nil {
				return err
			}
			cmd.Printf("circuit breaker of pool %s reset\n", args[0])
			return nil
		},
	})

	return cmd
}
