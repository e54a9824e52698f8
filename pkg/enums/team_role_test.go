package enums

import "testing"

func TestParseTeamRole(t *testing.T) {
	cases := map[string]TeamRole{
		"READ":   TeamRoleRead,
		"edit":   TeamRoleEdit,
		" Admin": TeamRoleAdmin,
		"OWNER":  TeamRoleOwner,
	}
	for raw, want := range cases {
		got, err := ParseTeamRole(raw)
		if err != nil {
			t.Fatalf("ParseTeamRole(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseTeamRole(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := ParseTeamRole("superuser"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestTeamRoleIn(t *testing.T) {
	if !TeamRoleAdmin.In(TeamRoleAdmin, TeamRoleOwner) {
		t.Fatal("admin should be in the manage set")
	}
	if TeamRoleRead.In(TeamRoleAdmin, TeamRoleOwner) {
		t.Fatal("read should not be in the manage set")
	}
	if TeamRoleOwner.In() {
		t.Fatal("empty set contains nothing")
	}
}

func TestTeamRolesReturnsCopy(t *testing.T) {
	roles := TeamRoles()
	roles[0] = "MUTATED"
	if TeamRoles()[0] != TeamRoleRead {
		t.Fatal("TeamRoles must not expose the backing slice")
	}
	if !TeamRoleEdit.IsValid() || TeamRole("MUTATED").IsValid() {
		t.Fatal("IsValid mismatch")
	}
}
