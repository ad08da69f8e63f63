package enums

import "fmt"

// Action is a class of operation gated by the access policy.
type Action string

const (
	ActionCheckout          Action = "checkout"
	ActionReturn            Action = "return"
	ActionReserve           Action = "reserve"
	ActionCancelReservation Action = "cancel_reservation"
	ActionMarkMaintenance   Action = "mark_maintenance"
	ActionClearMaintenance  Action = "clear_maintenance"
	ActionEditTitle         Action = "edit_title"
	ActionManageCopies      Action = "manage_copies"
	ActionViewActivity      Action = "view_activity"
	ActionViewDashboard     Action = "view_dashboard"
	ActionViewUsers         Action = "view_users"
	ActionManageUsers       Action = "manage_users"
	ActionManageBranches    Action = "manage_branches"
)

var validActions = []Action{
	ActionCheckout,
	ActionReturn,
	ActionReserve,
	ActionCancelReservation,
	ActionMarkMaintenance,
	ActionClearMaintenance,
	ActionEditTitle,
	ActionManageCopies,
	ActionViewActivity,
	ActionViewDashboard,
	ActionViewUsers,
	ActionManageUsers,
	ActionManageBranches,
}

// Actions returns every known action.
func Actions() []Action {
	out := make([]Action, len(validActions))
	copy(out, validActions)
	return out
}

// String implements fmt.Stringer.
func (a Action) String() string {
	return string(a)
}

// IsValid reports whether the value is a known Action.
func (a Action) IsValid() bool {
	for _, candidate := range validActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAction converts raw input into an Action.
func ParseAction(value string) (Action, error) {
	for _, candidate := range validActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid action %q", value)
}
