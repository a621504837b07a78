// internal/app/system/authz/roles.go
package authz

import "strings"

// Role is the canonical role of an actor.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamLeader Role = "team_leader"
	RoleMember     Role = "member"
	RoleUnknown    Role = ""
)

// NormalizeRole maps stored or submitted role strings onto a canonical Role.
// Legacy aliases for the team leader role ("manager", "leader") are folded
// here so that nothing past the boundary has to know about them.
func NormalizeRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch s {
	case "admin":
		return RoleAdmin
	case "team_leader", "teamleader", "manager", "leader":
		return RoleTeamLeader
	case "member":
		return RoleMember
	}
	return RoleUnknown
}

// String returns the stored form of r.
func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeamLeader || r == RoleMember
}
