package types

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleCircuitBreaker Role = "circuit-breaker"
	RoleOperator       Role = "operator"
)

func (r Role) String() string {
	return string(r)
}

func ValidRoles() map[Role]bool {
	return map[Role]bool{
		RoleAdmin:          true,
		RoleCircuitBreaker: true,
		RoleOperator:       true,
	}
}
