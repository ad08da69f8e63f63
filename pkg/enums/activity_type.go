package enums

import "fmt"

// ActivityType labels an accepted mutation in the activity log.
type ActivityType string

const (
	ActivityTypeCheckout          ActivityType = "checkout"
	ActivityTypeReturn            ActivityType = "return"
	ActivityTypeReserve           ActivityType = "reserve"
	ActivityTypeCancelReservation ActivityType = "cancel_reservation"
	ActivityTypeMarkMaintenance   ActivityType = "mark_maintenance"
	ActivityTypeClearMaintenance  ActivityType = "clear_maintenance"
	ActivityTypeAddBook           ActivityType = "add_book"
	ActivityTypeEditBook          ActivityType = "edit_book"
	ActivityTypeAddCopy           ActivityType = "add_copy"
	ActivityTypeAddUser           ActivityType = "add_user"
	ActivityTypeAddBranch         ActivityType = "add_branch"
)

var validActivityTypes = []ActivityType{
	ActivityTypeCheckout,
	ActivityTypeReturn,
	ActivityTypeReserve,
	ActivityTypeCancelReservation,
	ActivityTypeMarkMaintenance,
	ActivityTypeClearMaintenance,
	ActivityTypeAddBook,
	ActivityTypeEditBook,
	ActivityTypeAddCopy,
	ActivityTypeAddUser,
	ActivityTypeAddBranch,
}

// String implements fmt.Stringer.
func (a ActivityType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActivityType.
func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into an ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
