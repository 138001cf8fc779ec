package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/viddhana/pool-ledger/pkg"
)

const (
	defaultConfigFileName = "config.yml"
	// configPathEnv overrides the default config location
	configPathEnv = "POOL_LEDGER_CONFIG"
)

var (
	cfgPath string
	actor   string
	rootCmd = &cobra.Command{
		Use:           "pool-ledger",
		Short:         "Pool ledger, reward distribution and payout service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := pkg.Getenv(configPathEnv, getDefaultConfigFile(homePath, defaultConfigFileName))

	rootCmd.AddCommand(StartServerCmd())
	rootCmd.AddCommand(InitPoolCmd())
	rootCmd.AddCommand(StartEpochCmd())
	rootCmd.AddCommand(CircuitBreakerCmd())
	rootCmd.AddCommand(ProcessPayoutCmd())
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "actor id the command is performed as, checked against access.roles")
	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func getDefaultConfigFile(homePath, filename string) string {
	return filepath.Join(homePath, filename)
}

func GetConfigPath() string {
	return cfgPath
}
