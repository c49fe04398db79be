package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/schoolhub/membership/internal/permission"
)

var ErrInvalidStatusLiteral = errors.New("invalid member status")

type MemberStatus string

const (
	MemberActive    MemberStatus = "Active"
	MemberInactive  MemberStatus = "Inactive"
	MemberPending   MemberStatus = "Pending"
	MemberSuspended MemberStatus = "Suspended"
)

func ParseMemberStatus(s string) (MemberStatus, error) {
	switch st := MemberStatus(s); st {
	case MemberActive, MemberInactive, MemberPending, MemberSuspended:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatusLiteral, s)
}

// Member binds a user to a school with a role. It is the only source of
// tenant-scoped authority.
type Member struct {
	ID       string  `json:"id" bson:"_id,omitempty"`
	UserID   string  `json:"user_id" bson:"user_id"`
	SchoolID string  `json:"school_id" bson:"school_id"`
	BranchID *string `json:"branch_id,omitempty" bson:"branch_id,omitempty"`

	Role        permission.SchoolRole   `json:"role" bson:"role"`
	Permissions []permission.Permission `json:"permissions" bson:"permissions"`
	Title       *string                 `json:"title,omitempty" bson:"title,omitempty"`

	StudentID *string  `json:"student_id,omitempty" bson:"student_id,omitempty"`
	StaffID   *string  `json:"staff_id,omitempty" bson:"staff_id,omitempty"`
	ParentOf  []string `json:"parent_of" bson:"parent_of"`

	Status           MemberStatus `json:"status" bson:"status"`
	JoinedAt         time.Time    `json:"joined_at" bson:"joined_at"`
	InvitedBy        *string      `json:"invited_by,omitempty" bson:"invited_by,omitempty"`
	InvitationCode   *string      `json:"invitation_code,omitempty" bson:"invitation_code,omitempty"`
	IsPrimaryContact bool         `json:"is_primary_contact" bson:"is_primary_contact"`

	Audit      `bson:",inline"`
	SoftDelete `bson:",inline"`
}

func NewMember(userID, schoolID string, role permission.SchoolRole, now time.Time) *Member {
	return &Member{
		UserID:      userID,
		SchoolID:    schoolID,
		Role:        role,
		Permissions: []permission.Permission{},
		ParentOf:    []string{},
		Status:      MemberActive,
		JoinedAt:    now,
		Audit:       NewAudit("", now),
	}
}

// NewOwner builds the primary-contact Owner created alongside a school.
func NewOwner(userID, schoolID string, now time.Time) *Member {
	m := NewMember(userID, schoolID, permission.RoleOwner, now)
	m.IsPrimaryContact = true
	m.CreatedBy = userID
	m.UpdatedBy = userID
	return m
}

// IsEffectivelyActive is true only for an Active member that is not soft deleted.
func (m *Member) IsEffectivelyActive() bool {
	return m.Status == MemberActive && !m.IsDeleted
}

func (m *Member) HasPermission(p permission.Permission) bool {
	return permission.Has(m.Role, m.Permissions, p)
}

func (m *Member) EffectivePermissions() []permission.Permission {
	return permission.Effective(m.Role, m.Permissions)
}
