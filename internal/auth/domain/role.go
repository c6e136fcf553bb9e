package domain

import "fmt"

// Role is the closed set of tenant roles on the platform. Every account
// belongs to exactly one role, and the role decides which backend origin
// and session cookie namespace the account is routed to.
type Role string

const (
	RoleExporter   Role = "Exporter"
	RoleImporter   Role = "Importer"
	RoleFinancier  Role = "Financier"
	RoleLogistics  Role = "Logistics"
	RoleInspector1 Role = "Inspector1"
	RoleInspector2 Role = "Inspector2"
	RolePlatform   Role = "Platform"
)

// Roles lists every valid role. The order is stable so it can be ranged
// over when building static routing tables.
func Roles() []Role {
	return []Role{
		RoleExporter,
		RoleImporter,
		RoleFinancier,
		RoleLogistics,
		RoleInspector1,
		RoleInspector2,
		RolePlatform,
	}
}

// ParseRole validates a client-supplied role string against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleExporter, RoleImporter, RoleFinancier, RoleLogistics,
		RoleInspector1, RoleInspector2, RolePlatform:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }
