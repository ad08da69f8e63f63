package enums

import "testing"

func TestParseCopyStatus(t *testing.T) {
	for _, status := range CopyStatuses() {
		got, err := ParseCopyStatus(string(status))
		if err != nil {
			t.Fatalf("ParseCopyStatus(%q) error: %v", status, err)
		}
		if got != status {
			t.Fatalf("expected %q, got %q", status, got)
		}
	}
	if _, err := ParseCopyStatus("lost"); err == nil {
		t.Fatal("expected error for unknown copy status")
	}
}

func TestRoleValidity(t *testing.T) {
	cases := map[Role]bool{
		RoleAdmin:     true,
		RoleStaff:     true,
		RoleTeacher:   true,
		Role("owner"): false,
		Role(""):      false,
	}
	for role, want := range cases {
		if got := role.IsValid(); got != want {
			t.Fatalf("Role(%q).IsValid() = %v, want %v", role, got, want)
		}
	}
	if _, err := ParseRole("Admin"); err == nil {
		t.Fatal("expected case-sensitive parse to reject Admin")
	}
}

func TestParseActionAndActivityType(t *testing.T) {
	for _, action := range Actions() {
		if _, err := ParseAction(action.String()); err != nil {
			t.Fatalf("ParseAction(%q) error: %v", action, err)
		}
	}
	if _, err := ParseAction("delete_everything"); err == nil {
		t.Fatal("expected unknown action to fail")
	}

	if got, err := ParseActivityType("add_book"); err != nil || got != ActivityTypeAddBook {
		t.Fatalf("ParseActivityType(add_book) = %q, %v", got, err)
	}
	if _, err := ParseCopyCondition("mint"); err == nil {
		t.Fatal("expected unknown condition to fail")
	}
	if got, err := ParseLoanStatus("overdue"); err != nil || got != LoanStatusOverdue {
		t.Fatalf("ParseLoanStatus(overdue) = %q, %v", got, err)
	}
}
