package access

import (
	"strings"

	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/types"
)

// RoleChecker answers whether an actor holds a role. It is consulted at the
// top of every privileged operation.
type RoleChecker interface {
	HasRole(actor string, role types.Role) bool
}

// Checker is a static role table loaded from configuration.
type Checker struct {
	roles map[string]map[types.Role]bool
}

func NewChecker(cfg *config.AccessConfig) *Checker {
	c := &Checker{roles: make(map[string]map[types.Role]bool)}
	if cfg == nil {
		return c
	}
	for actor, roles := range cfg.Roles {
		for _, r := range roles {
			c.Grant(actor, types.Role(r))
		}
	}
	return c
}

func (c *Checker) Grant(actor string, role types.Role) {
	key := strings.ToLower(actor)
	if c.roles[key] == nil {
		c.roles[key] = make(map[types.Role]bool)
	}
	c.roles[key][role] = true
}

func (c *Checker) HasRole(actor string, role types.Role) bool {
	if actor == "" {
		return false
	}
	return c.roles[strings.ToLower(actor)][role]
}

// Require returns a forbidden error unless actor holds role.
func Require(c RoleChecker, actor string, role types.Role) error {
	if !c.HasRole(actor, role) {
		return types.NewForbiddenError("actor %q lacks role %s", actor, role)
	}
	return nil
}
