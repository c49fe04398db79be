package permission

import (
	"errors"
	"fmt"
)

var ErrInvalidRoleLiteral = errors.New("invalid role")

// SchoolRole is a member's role inside one school (tenant).
type SchoolRole string

const (
	RoleOwner          SchoolRole = "Owner"
	RoleDirector       SchoolRole = "Director"
	RoleDeputyDirector SchoolRole = "DeputyDirector"
	RoleAdmin          SchoolRole = "Admin"
	RoleHeadTeacher    SchoolRole = "HeadTeacher"
	RoleTeacher        SchoolRole = "Teacher"
	RoleStudent        SchoolRole = "Student"
	RoleParent         SchoolRole = "Parent"
	RoleStaff          SchoolRole = "Staff"
	RoleAccountant     SchoolRole = "Accountant"
	RoleLibrarian      SchoolRole = "Librarian"
)

// AllRoles lists every tenant role in declaration order.
var AllRoles = []SchoolRole{
	RoleOwner,
	RoleDirector,
	RoleDeputyDirector,
	RoleAdmin,
	RoleHeadTeacher,
	RoleTeacher,
	RoleStudent,
	RoleParent,
	RoleStaff,
	RoleAccountant,
	RoleLibrarian,
}

func (r SchoolRole) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r SchoolRole) String() string { return string(r) }

// ParseRole converts a wire literal into a SchoolRole. Matching is exact.
func ParseRole(s string) (SchoolRole, error) {
	r := SchoolRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoleLiteral, s)
	}
	return r, nil
}

// SystemRole is the platform-level role carried in the credential.
type SystemRole string

const (
	SystemSuperAdmin SystemRole = "SuperAdmin"
	SystemAdmin      SystemRole = "Admin"
	SystemUser       SystemRole = "User"
)

var AllSystemRoles = []SystemRole{SystemSuperAdmin, SystemAdmin, SystemUser}

func (r SystemRole) Valid() bool {
	switch r {
	case SystemSuperAdmin, SystemAdmin, SystemUser:
		return true
	}
	return false
}

func ParseSystemRole(s string) (SystemRole, error) {
	r := SystemRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoleLiteral, s)
	}
	return r, nil
}
