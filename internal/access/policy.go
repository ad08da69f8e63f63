// Package access maps roles to the operation classes they may perform.
package access

import (
	"fmt"

	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
	pkgerrors "github.com/AarushDarne/shelftrack-webapp/pkg/errors"
)

var (
	allRoles   = []enums.Role{enums.RoleAdmin, enums.RoleStaff, enums.RoleTeacher}
	staffRoles = []enums.Role{enums.RoleAdmin, enums.RoleStaff}
	adminOnly  = []enums.Role{enums.RoleAdmin}
)

var grants = map[enums.Action][]enums.Role{
	enums.ActionCheckout:          allRoles,
	enums.ActionReturn:            allRoles,
	enums.ActionReserve:           allRoles,
	enums.ActionCancelReservation: allRoles,
	enums.ActionViewActivity:      allRoles,
	enums.ActionViewDashboard:     allRoles,

	enums.ActionMarkMaintenance:  staffRoles,
	enums.ActionClearMaintenance: staffRoles,
	enums.ActionEditTitle:        staffRoles,
	enums.ActionManageCopies:     staffRoles,
	enums.ActionViewUsers:        staffRoles,

	enums.ActionManageUsers:    adminOnly,
	enums.ActionManageBranches: adminOnly,
}

// Allows reports whether role may perform action. Unknown roles and actions are denied.
func Allows(role enums.Role, action enums.Action) bool {
	for _, granted := range grants[action] {
		if granted == role {
			return true
		}
	}
	return false
}

// Authorize returns a FORBIDDEN error when role may not perform action.
func Authorize(role enums.Role, action enums.Action) error {
	if Allows(role, action) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("role %q may not %s", role, action)).
		WithDetails(map[string]any{"role": role.String(), "action": action.String()})
}

// ActionsFor lists the actions a role may perform, in declaration order.
func ActionsFor(role enums.Role) []enums.Action {
	var out []enums.Action
	for _, action := range enums.Actions() {
		if Allows(role, action) {
			out = append(out, action)
		}
	}
	return out
}
