package enums

import "fmt"

// CopyStatus is the lifecycle state of one physical copy.
type CopyStatus string

const (
	CopyStatusAvailable   CopyStatus = "available"
	CopyStatusReserved    CopyStatus = "reserved"
	CopyStatusCheckedOut  CopyStatus = "checked_out"
	CopyStatusMaintenance CopyStatus = "maintenance"
)

var validCopyStatuses = []CopyStatus{
	CopyStatusAvailable,
	CopyStatusReserved,
	CopyStatusCheckedOut,
	CopyStatusMaintenance,
}

// CopyStatuses returns every lifecycle state in display order.
func CopyStatuses() []CopyStatus {
	out := make([]CopyStatus, len(validCopyStatuses))
	copy(out, validCopyStatuses)
	return out
}

// String implements fmt.Stringer.
func (c CopyStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CopyStatus.
func (c CopyStatus) IsValid() bool {
	for _, candidate := range validCopyStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCopyStatus converts raw input into a CopyStatus.
func ParseCopyStatus(value string) (CopyStatus, error) {
	for _, candidate := range validCopyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid copy status %q", value)
}
