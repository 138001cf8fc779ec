package config

import (
	"fmt"

	"github.com/viddhana/pool-ledger/internal/types"
)

type AccessConfig struct {
	// Roles maps an actor id to the roles it holds. Viper lower-cases map
	// keys, so actor ids are matched case-insensitively.
	Roles map[string][]string `mapstructure:"roles"`
}

func (cfg *AccessConfig) Validate() error {
	valid := types.ValidRoles()
	for actor, roles := range cfg.Roles {
		if actor == "" {
			return fmt.Errorf("access roles contain an empty actor")
		}
		for _, r := range roles {
			if !valid[types.Role(r)] {
				return fmt.Errorf("actor %s has unknown role %q", actor, r)
			}
		}
	}
	return nil
}
