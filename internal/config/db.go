package config

import (
	"fmt"
	"net/url"
)

const (
	DbDriverMongo  = "mongo"
	DbDriverSqlite = "sqlite"

	defaultMaxConflictRetries = 5
)

type DbConfig struct {
	Driver   string `mapstructure:"driver"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"db-name"`
	Address  string `mapstructure:"address"`
	// SqlitePath is the database file used by the sqlite driver. Empty means in-memory.
	SqlitePath string `mapstructure:"sqlite-path"`
	// MaxConflictRetries bounds how many times an operation that lost an
	// optimistic update race is replayed.
	MaxConflictRetries uint `mapstructure:"max-conflict-retries"`
}

func (cfg *DbConfig) Validate() error {
	if cfg.Driver == "" {
		cfg.Driver = DbDriverMongo
	}
	if cfg.MaxConflictRetries == 0 {
		cfg.MaxConflictRetries = defaultMaxConflictRetries
	}

	switch cfg.Driver {
	case DbDriverMongo:
		if cfg.Username == "" {
			return fmt.Errorf("missing db username")
		}

		if cfg.Password == "" {
			return fmt.Errorf("missing db password")
		}

		if cfg.Address == "" {
			return fmt.Errorf("missing db address")
		}

		if cfg.DbName == "" {
			return fmt.Errorf("missing db name")
		}

		u, err := url.Parse(cfg.Address)
		if err != nil {
			return fmt.Errorf("invalid db address: %w", err)
		}

		if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			return fmt.Errorf("invalid db address scheme: %s", u.Scheme)
		}
	case DbDriverSqlite:
		// empty path is a valid in-memory database
	default:
		return fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	return nil
}
