package domain

import "strings"

// Role is the closed set of user categories. Input arrives in mixed case from
// forms and from the backend, so comparison always goes through ParseRole;
// anything unrecognized maps to RoleUnknown rather than failing.
type Role string

const (
	RoleVictim       Role = "victim"
	RoleVolunteer    Role = "volunteer"
	RoleOrganization Role = "organization"
	RoleDonor        Role = "donor"
	RoleAdmin        Role = "admin"
	RoleUnknown      Role = "unknown"
)

func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "victim":
		return RoleVictim
	case "volunteer":
		return RoleVolunteer
	case "organization":
		return RoleOrganization
	case "donor":
		return RoleDonor
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}
