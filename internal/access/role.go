// AngelaMos | 2026
// role.go

package access

import (
	"fmt"
	"strings"

	"github.com/carterperez-dev/templates/directory-api/internal/core"
)

type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleAdmin        Role = "ADMIN"
	RoleDataEntry    Role = "DATA_ENTRY"
	RoleFactoryOwner Role = "FACTORY_OWNER"
	RoleEmployee     Role = "EMPLOYEE"
	RoleUser         Role = "USER"
)

// hierarchy is ordered from most to least privileged.
var hierarchy = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleDataEntry,
	RoleFactoryOwner,
	RoleEmployee,
	RoleUser,
}

func AllRoles() []Role {
	out := make([]Role, len(hierarchy))
	copy(out, hierarchy)
	return out
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("parse role %q: %w", s, core.ErrInvalidInput)
	}
	return r, nil
}

func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// Rank is the position in the hierarchy, 0 being SUPER_ADMIN. Unknown roles
// rank -1.
func (r Role) Rank() int {
	for i, h := range hierarchy {
		if h == r {
			return i
		}
	}
	return -1
}

func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated caller a decision is made for.
type Actor struct {
	ID   string
	Role Role
}

type roleSet map[Role]struct{}

func newRoleSet(roles ...Role) roleSet {
	set := make(roleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s roleSet) has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Route allow-lists shared by the HTTP layer.
var (
	Administrators = []Role{RoleSuperAdmin, RoleAdmin}
	UserManagers   = []Role{RoleSuperAdmin, RoleAdmin, RoleDataEntry}
)

// CheckRoute is the route gate: a missing identity is reported before a role
// mismatch.
func CheckRoute(actor *Actor, allowed ...Role) error {
	if actor == nil || actor.ID == "" {
		return fmt.Errorf("route gate: %w", core.ErrUnauthorized)
	}

	if !newRoleSet(allowed...).has(actor.Role) {
		return fmt.Errorf("route gate: role %s: %w", actor.Role, core.ErrForbidden)
	}

	return nil
}
