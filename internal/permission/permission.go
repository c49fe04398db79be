package permission

import (
	"errors"
	"fmt"
)

var ErrInvalidPermissionLiteral = errors.New("invalid permission")

// Permission is a fine-grained capability inside a school.
type Permission string

const (
	ViewDashboard Permission = "ViewDashboard"

	ViewStudents   Permission = "ViewStudents"
	CreateStudents Permission = "CreateStudents"
	UpdateStudents Permission = "UpdateStudents"
	DeleteStudents Permission = "DeleteStudents"
	ImportStudents Permission = "ImportStudents"
	ExportStudents Permission = "ExportStudents"

	ViewClasses   Permission = "ViewClasses"
	ManageClasses Permission = "ManageClasses"

	ViewAttendance        Permission = "ViewAttendance"
	MarkAttendance        Permission = "MarkAttendance"
	EditAttendance        Permission = "EditAttendance"
	ViewAttendanceReports Permission = "ViewAttendanceReports"

	ViewGrades       Permission = "ViewGrades"
	EnterGrades      Permission = "EnterGrades"
	ApproveGrades    Permission = "ApproveGrades"
	ViewGradeReports Permission = "ViewGradeReports"

	ViewFinance         Permission = "ViewFinance"
	RecordPayments      Permission = "RecordPayments"
	ManageFeesStructure Permission = "ManageFeesStructure"
	GenerateInvoices    Permission = "GenerateInvoices"
	ViewFinanceReports  Permission = "ViewFinanceReports"

	ViewStaff     Permission = "ViewStaff"
	ManageStaff   Permission = "ManageStaff"
	ManagePayroll Permission = "ManagePayroll"

	SendAnnouncements Permission = "SendAnnouncements"
	SendMessages      Permission = "SendMessages"
	ViewMessages      Permission = "ViewMessages"

	ViewEvents   Permission = "ViewEvents"
	ManageEvents Permission = "ManageEvents"

	ViewLibrary   Permission = "ViewLibrary"
	ManageLibrary Permission = "ManageLibrary"

	ViewTransport   Permission = "ViewTransport"
	ManageTransport Permission = "ManageTransport"

	ViewSettings   Permission = "ViewSettings"
	ManageSettings Permission = "ManageSettings"
	ManageUsers    Permission = "ManageUsers"
	ManageRoles    Permission = "ManageRoles"
)

// All is the closed set of permissions.
var All = []Permission{
	ViewDashboard,
	ViewStudents, CreateStudents, UpdateStudents, DeleteStudents, ImportStudents, ExportStudents,
	ViewClasses, ManageClasses,
	ViewAttendance, MarkAttendance, EditAttendance, ViewAttendanceReports,
	ViewGrades, EnterGrades, ApproveGrades, ViewGradeReports,
	ViewFinance, RecordPayments, ManageFeesStructure, GenerateInvoices, ViewFinanceReports,
	ViewStaff, ManageStaff, ManagePayroll,
	SendAnnouncements, SendMessages, ViewMessages,
	ViewEvents, ManageEvents,
	ViewLibrary, ManageLibrary,
	ViewTransport, ManageTransport,
	ViewSettings, ManageSettings, ManageUsers, ManageRoles,
}

func (p Permission) Valid() bool {
	for _, known := range All {
		if p == known {
			return true
		}
	}
	return false
}

func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPermissionLiteral, s)
	}
	return p, nil
}

// leadership is shared by Owner, Director and DeputyDirector.
var leadership = []Permission{
	ViewDashboard,
	ViewStudents, CreateStudents, UpdateStudents, DeleteStudents, ImportStudents, ExportStudents,
	ViewClasses, ManageClasses,
	ViewAttendance, MarkAttendance, EditAttendance, ViewAttendanceReports,
	ViewGrades, EnterGrades, ApproveGrades, ViewGradeReports,
	ViewFinance, RecordPayments, ManageFeesStructure, GenerateInvoices, ViewFinanceReports,
	ViewStaff, ManageStaff, ManagePayroll,
	SendAnnouncements, SendMessages, ViewMessages,
	ViewEvents, ManageEvents,
	ViewSettings, ManageSettings, ManageUsers, ManageRoles,
}

var defaults = map[SchoolRole][]Permission{
	RoleOwner:          leadership,
	RoleDirector:       leadership,
	RoleDeputyDirector: leadership,
	RoleHeadTeacher: {
		ViewDashboard,
		ViewStudents, CreateStudents, UpdateStudents,
		ViewClasses, ManageClasses,
		ViewAttendance, MarkAttendance, EditAttendance, ViewAttendanceReports,
		ViewGrades, EnterGrades, ApproveGrades, ViewGradeReports,
		ViewStaff,
		SendAnnouncements, SendMessages, ViewMessages,
		ViewEvents, ManageEvents,
	},
	RoleAdmin: {
		ViewDashboard,
		ViewStudents, CreateStudents, UpdateStudents, ImportStudents, ExportStudents,
		ViewClasses, ManageClasses,
		ViewAttendance, EditAttendance, ViewAttendanceReports,
		ViewGrades, ViewGradeReports,
		ViewFinance, RecordPayments, GenerateInvoices, ViewFinanceReports,
		ViewStaff, ManageStaff,
		SendAnnouncements, SendMessages, ViewMessages,
		ViewEvents, ManageEvents,
		ViewSettings, ManageUsers,
	},
	RoleTeacher: {
		ViewDashboard,
		ViewStudents,
		ViewClasses,
		ViewAttendance, MarkAttendance, ViewAttendanceReports,
		ViewGrades, EnterGrades, ViewGradeReports,
		SendMessages, ViewMessages,
		ViewEvents,
	},
	RoleStudent: {
		ViewDashboard,
		ViewAttendance,
		ViewGrades,
		ViewMessages,
		ViewEvents,
	},
	RoleParent: {
		ViewDashboard,
		ViewAttendance,
		ViewGrades,
		ViewFinance,
		SendMessages, ViewMessages,
		ViewEvents,
	},
	RoleStaff:      {ViewDashboard},
	RoleAccountant: {ViewDashboard},
	RoleLibrarian:  {ViewDashboard},
}

// Defaults returns a copy of the permissions a role carries without any
// explicit grants. Every role in AllRoles has an entry; an unknown role
// yields nil.
func Defaults(role SchoolRole) []Permission {
	perms, ok := defaults[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Has reports whether p is granted either explicitly or by the role defaults.
// Explicit grants only ever add to the defaults.
func Has(role SchoolRole, explicit []Permission, p Permission) bool {
	for _, g := range explicit {
		if g == p {
			return true
		}
	}
	for _, d := range defaults[role] {
		if d == p {
			return true
		}
	}
	return false
}

// Effective returns the union of role defaults and explicit grants, defaults first.
func Effective(role SchoolRole, explicit []Permission) []Permission {
	out := Defaults(role)
	seen := make(map[Permission]bool, len(out)+len(explicit))
	for _, p := range out {
		seen[p] = true
	}
	for _, p := range explicit {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
