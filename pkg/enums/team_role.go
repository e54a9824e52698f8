package enums

import (
	"fmt"
	"strings"
)

// TeamRole is the permission level a membership grants on a team. Checks
// compare against explicit role sets, never against a rank.
type TeamRole string

const (
	TeamRoleRead  TeamRole = "READ"
	TeamRoleEdit  TeamRole = "EDIT"
	TeamRoleAdmin TeamRole = "ADMIN"
	TeamRoleOwner TeamRole = "OWNER"
)

var validTeamRoles = []TeamRole{
	TeamRoleRead,
	TeamRoleEdit,
	TeamRoleAdmin,
	TeamRoleOwner,
}

// String implements fmt.Stringer.
func (r TeamRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known TeamRole.
func (r TeamRole) IsValid() bool {
	for _, candidate := range validTeamRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// In reports whether r is one of the provided roles.
func (r TeamRole) In(roles ...TeamRole) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseTeamRole converts raw input into a TeamRole. Matching ignores case.
func ParseTeamRole(value string) (TeamRole, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validTeamRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid team role %q", value)
}

// TeamRoles returns every known role.
func TeamRoles() []TeamRole {
	out := make([]TeamRole, len(validTeamRoles))
	copy(out, validTeamRoles)
	return out
}
