package permission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsCoverEveryRole(t *testing.T) {
	known := make(map[Permission]bool, len(All))
	for _, p := range All {
		known[p] = true
	}

	for _, role := range AllRoles {
		t.Run(string(role), func(t *testing.T) {
			perms := Defaults(role)
			require.NotEmpty(t, perms)
			for _, p := range perms {
				assert.Truef(t, known[p], "%s is not a known permission", p)
			}
		})
	}
}

func TestDefaultsUnknownRole(t *testing.T) {
	assert.Nil(t, Defaults(SchoolRole("Janitor")))
}

func TestDefaultsReturnsCopy(t *testing.T) {
	perms := Defaults(RoleTeacher)
	perms[0] = ManageRoles
	assert.Equal(t, ViewDashboard, Defaults(RoleTeacher)[0])
}

func TestResidualRolesAreMinimal(t *testing.T) {
	for _, role := range []SchoolRole{RoleStaff, RoleAccountant, RoleLibrarian} {
		assert.Equal(t, []Permission{ViewDashboard}, Defaults(role), role)
	}
}

func TestHas(t *testing.T) {
	tests := []struct {
		name     string
		role     SchoolRole
		explicit []Permission
		perm     Permission
		want     bool
	}{
		{name: "default grant", role: RoleTeacher, perm: MarkAttendance, want: true},
		{name: "not in defaults", role: RoleTeacher, perm: ManageUsers, want: false},
		{name: "explicit grant", role: RoleTeacher, explicit: []Permission{ManageUsers}, perm: ManageUsers, want: true},
		{name: "explicit does not revoke defaults", role: RoleTeacher, explicit: []Permission{ManageUsers}, perm: MarkAttendance, want: true},
		{name: "owner lacks library by default", role: RoleOwner, perm: ManageLibrary, want: false},
		{name: "student view grades", role: RoleStudent, perm: ViewGrades, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Has(tt.role, tt.explicit, tt.perm))
		})
	}
}

func TestHasIsMonotonic(t *testing.T) {
	for _, role := range AllRoles {
		for _, extra := range All {
			for _, p := range All {
				before := Has(role, nil, p)
				after := Has(role, []Permission{extra}, p)
				if before && !after {
					t.Fatalf("granting %s to %s removed %s", extra, role, p)
				}
			}
		}
	}
}

func TestEffective(t *testing.T) {
	got := Effective(RoleStudent, []Permission{ViewDashboard, ManageLibrary})
	assert.Equal(t, append(Defaults(RoleStudent), ManageLibrary), got)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Teacher")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, r)

	for _, bad := range []string{"", "teacher", "Principal", " Owner"} {
		_, err := ParseRole(bad)
		assert.Truef(t, errors.Is(err, ErrInvalidRoleLiteral), "ParseRole(%q)", bad)
	}
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("ManageRoles")
	require.NoError(t, err)
	assert.Equal(t, ManageRoles, p)

	_, err = ParsePermission("DoEverything")
	assert.ErrorIs(t, err, ErrInvalidPermissionLiteral)
}

func TestCanManageMembers(t *testing.T) {
	allowed := map[SchoolRole]bool{RoleOwner: true, RoleDirector: true, RoleDeputyDirector: true}
	for _, role := range AllRoles {
		assert.Equal(t, allowed[role], CanManageMembers(role), role)
	}
}

func TestCanManageBranch(t *testing.T) {
	b1, b2 := "B1", "B2"
	branches := []*string{nil, &b1, &b2}

	for _, caller := range branches {
		for _, target := range branches {
			assert.True(t, CanManageBranch(RoleOwner, caller, target))
		}
	}

	tests := []struct {
		name           string
		caller, target *string
		want           bool
	}{
		{name: "same branch", caller: &b1, target: &b1, want: true},
		{name: "other branch", caller: &b1, target: &b2, want: false},
		{name: "both school wide", want: true},
		{name: "scoped caller unscoped target", caller: &b1, want: false},
		{name: "unscoped caller scoped target", target: &b1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanManageBranch(RoleDirector, tt.caller, tt.target))
		})
	}
}
