// AngelaMos | 2026
// policy.go

package access

import (
	"fmt"

	"github.com/carterperez-dev/templates/directory-api/internal/core"
)

type Action string

const (
	ActionViewUser       Action = "user:view"
	ActionEditUser       Action = "user:edit"
	ActionChangeRole     Action = "user:change_role"
	ActionChangePassword Action = "user:change_password"
	ActionDeleteUser     Action = "user:delete"
	ActionCreateUser     Action = "user:create"
)

type Decision int

const (
	Deny Decision = iota
	Allow
	// AllowPublic grants the restricted public projection only.
	AllowPublic
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case AllowPublic:
		return "allow_public"
	default:
		return "deny"
	}
}

// Request describes one fine-grained decision. TargetRole and RequestedRole
// are only consulted by the actions that need them.
type Request struct {
	Actor         Actor
	Action        Action
	TargetID      string
	TargetRole    Role
	RequestedRole Role
}

func (r Request) isSelf() bool {
	return r.Actor.ID != "" && r.Actor.ID == r.TargetID
}

type rule func(Request) Decision

var policy = map[Action]rule{
	ActionViewUser: func(r Request) Decision {
		if r.isSelf() || newRoleSet(
			RoleSuperAdmin, RoleAdmin, RoleDataEntry, RoleFactoryOwner,
		).has(r.Actor.Role) {
			return Allow
		}
		return AllowPublic
	},

	ActionEditUser: func(r Request) Decision {
		if r.isSelf() || newRoleSet(UserManagers...).has(r.Actor.Role) {
			return Allow
		}
		return Deny
	},

	ActionChangeRole: func(r Request) Decision {
		if !newRoleSet(Administrators...).has(r.Actor.Role) {
			return Deny
		}
		if r.Actor.Role == RoleAdmin && r.RequestedRole == RoleSuperAdmin {
			return Deny
		}
		return Allow
	},

	ActionChangePassword: func(r Request) Decision {
		if !newRoleSet(Administrators...).has(r.Actor.Role) {
			return Deny
		}
		if r.Actor.Role == RoleAdmin && r.TargetRole == RoleSuperAdmin {
			return Deny
		}
		return Allow
	},

	ActionDeleteUser: func(r Request) Decision {
		if !r.isSelf() && !newRoleSet(UserManagers...).has(r.Actor.Role) {
			return Deny
		}
		if r.Actor.Role == RoleAdmin && r.TargetRole == RoleSuperAdmin {
			return Deny
		}
		return Allow
	},

	ActionCreateUser: func(r Request) Decision {
		if !r.RequestedRole.Valid() {
			return Deny
		}
		creatable, ok := creatableRoles[r.Actor.Role]
		if !ok || !creatable.has(r.RequestedRole) {
			return Deny
		}
		return Allow
	},
}

var creatableRoles = map[Role]roleSet{
	RoleSuperAdmin: newRoleSet(hierarchy...),
	RoleAdmin: newRoleSet(
		RoleAdmin, RoleDataEntry, RoleFactoryOwner, RoleEmployee, RoleUser,
	),
	RoleDataEntry: newRoleSet(RoleAdmin, RoleDataEntry, RoleUser),
}

func Decide(req Request) Decision {
	if !req.Actor.Role.Valid() {
		return Deny
	}

	r, ok := policy[req.Action]
	if !ok {
		return Deny
	}

	return r(req)
}

// Authorize returns nil only for a full Allow.
func Authorize(req Request) error {
	if d := Decide(req); d != Allow {
		return fmt.Errorf(
			"%s by %s on %q: %w",
			req.Action,
			req.Actor.Role,
			req.TargetID,
			core.ErrForbidden,
		)
	}
	return nil
}
