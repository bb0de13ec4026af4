package rbac

import "testing"

func TestDefaultPermissions_Registry(t *testing.T) {
	cases := []struct {
		role  Role
		count int
	}{
		{RoleAdmin, 12},
		{RoleManager, 8},
		{RoleUser, 4},
		{RoleGuest, 0},
		{Role("unknown"), 0},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			perms := DefaultPermissions(tc.role)
			if perms == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(perms) != tc.count {
				t.Errorf("expected %d permissions for %s, got %d", tc.count, tc.role, len(perms))
			}
		})
	}
}

func TestDefaultPermissions_ReturnsCopy(t *testing.T) {
	perms := DefaultPermissions(RoleUser)
	perms[0] = "mutated"

	if DefaultPermissions(RoleUser)[0] == "mutated" {
		t.Error("mutating the returned slice must not affect the registry")
	}
}

func TestDefaultPermissions_TiersAreSupersets(t *testing.T) {
	// Each tier must include everything the tier below it has.
	tiers := []Role{RoleAdmin, RoleManager, RoleUser, RoleGuest}
	for i := 0; i < len(tiers)-1; i++ {
		upper := NewEvaluator(tiers[i], DefaultPermissions(tiers[i]))
		for _, p := range DefaultPermissions(tiers[i+1]) {
			if !upper.HasPermission(p) {
				t.Errorf("%s should include %s permission %q", tiers[i], tiers[i+1], p)
			}
		}
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleManager, RoleUser, RoleGuest} {
		if !r.Valid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	for _, r := range []Role{"", "superadmin", "Admin"} {
		if r.Valid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}

func TestEvaluator_PermissionChecks(t *testing.T) {
	e := NewEvaluator(RoleManager, []string{PermUserRead, PermReportCreate})

	if !e.HasPermission(PermUserRead) {
		t.Error("expected HasPermission to find a held permission")
	}
	if e.HasPermission(PermUserDelete) {
		t.Error("expected HasPermission to reject an unheld permission")
	}

	if !e.HasAnyPermission(PermUserDelete, PermReportCreate) {
		t.Error("HasAnyPermission should pass when one of the list is held")
	}
	if e.HasAnyPermission(PermUserDelete, PermSettingsUpdate) {
		t.Error("HasAnyPermission should fail when none of the list is held")
	}

	if !e.HasAllPermissions(PermUserRead, PermReportCreate) {
		t.Error("HasAllPermissions should pass when every permission is held")
	}
	if e.HasAllPermissions(PermUserRead, PermUserDelete) {
		t.Error("HasAllPermissions should fail when any permission is missing")
	}
	if !e.HasAllPermissions() {
		t.Error("an empty requirement list is trivially satisfied")
	}
}

func TestEvaluator_Can(t *testing.T) {
	e := NewEvaluator(RoleUser, []string{PermUserRead, PermReportRead})

	// A single permission is a simple membership check.
	if !e.Can(PermUserRead) {
		t.Error("Can(single held) should pass")
	}
	if e.Can(PermUserDelete) {
		t.Error("Can(single unheld) should fail")
	}

	// Multiple permissions require all of them.
	if !e.Can(PermUserRead, PermReportRead) {
		t.Error("Can(all held) should pass")
	}
	if e.Can(PermUserRead, PermUserDelete) {
		t.Error("Can requires every listed permission, not any")
	}
}

func TestEvaluator_Roles(t *testing.T) {
	e := NewEvaluator(RoleManager, nil)

	if !e.IsRole(RoleManager) {
		t.Error("expected IsRole(manager) to pass")
	}
	if e.IsRole(RoleAdmin) {
		t.Error("expected IsRole(admin) to fail")
	}
	if !e.IsAnyRole(RoleAdmin, RoleManager) {
		t.Error("expected IsAnyRole to match one of the list")
	}
	if e.IsAnyRole(RoleAdmin, RoleGuest) {
		t.Error("expected IsAnyRole to fail when role is absent")
	}
}

func TestEvaluator_Nil(t *testing.T) {
	var e *Evaluator

	if e.HasPermission(PermUserRead) || e.HasAnyPermission(PermUserRead) ||
		e.HasAllPermissions(PermUserRead) || e.Can(PermUserRead) {
		t.Error("nil evaluator must fail every permission check")
	}
	if e.IsRole(RoleGuest) || e.IsAnyRole(RoleGuest) {
		t.Error("nil evaluator must fail every role check")
	}
	if e.Role() != RoleGuest {
		t.Errorf("nil evaluator role should be guest, got %s", e.Role())
	}
	if e.Permissions() != nil {
		t.Error("nil evaluator permissions should be nil")
	}
	if !e.Satisfies(Requirements{}) {
		t.Error("nil evaluator should satisfy empty requirements")
	}
	if e.Satisfies(Requirements{Permissions: []string{PermUserRead}}) {
		t.Error("nil evaluator must not satisfy non-empty requirements")
	}
}

func TestEvaluator_Satisfies(t *testing.T) {
	e := NewEvaluator(RoleManager, []string{PermUserRead, PermAnalyticsView})

	cases := []struct {
		name string
		req  Requirements
		want bool
	}{
		{"empty", Requirements{}, true},
		{"role match", Requirements{Roles: []Role{RoleManager}}, true},
		{"role in list", Requirements{Roles: []Role{RoleAdmin, RoleManager}}, true},
		{"role mismatch", Requirements{Roles: []Role{RoleAdmin}}, false},
		{"perms all held", Requirements{Permissions: []string{PermUserRead, PermAnalyticsView}}, true},
		{"perms partially held", Requirements{Permissions: []string{PermUserRead, PermUserDelete}}, false},
		{"role and perms both pass", Requirements{Roles: []Role{RoleManager}, Permissions: []string{PermUserRead}}, true},
		{"role passes perms fail", Requirements{Roles: []Role{RoleManager}, Permissions: []string{PermUserDelete}}, false},
		{"role fails perms pass", Requirements{Roles: []Role{RoleAdmin}, Permissions: []string{PermUserRead}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Satisfies(tc.req); got != tc.want {
				t.Errorf("Satisfies(%+v) = %v, want %v", tc.req, got, tc.want)
			}
		})
	}
}
