// Package member implements membership lifecycle mutations and queries.
// Every mutation resolves the caller's own membership in the target school
// first; only Owner, Director and DeputyDirector may manage members.
package member

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/schoolhub/membership/internal/audit"
	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store"
)

var (
	ErrDuplicateMembership   = errors.New("user is already a member of this school")
	ErrMemberNotFound        = errors.New("member not found")
	ErrCannotRemoveLastOwner = errors.New("school must keep at least one active owner")
	ErrNoPermissions         = errors.New("no permissions given")
)

type Service struct {
	members store.MemberStore
	gate    *auth.Gate
	audit   audit.Logger
	now     func() time.Time
}

func NewService(members store.MemberStore, gate *auth.Gate, auditLog audit.Logger) *Service {
	return &Service{
		members: members,
		gate:    gate,
		audit:   auditLog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type AddInput struct {
	SchoolID    string
	UserID      string
	Role        permission.SchoolRole
	BranchID    *string
	Title       *string
	StudentID   *string
	StaffID     *string
	ParentOf    []string
	Permissions []permission.Permission
}

// Add creates a membership for in.UserID. The uniqueness check is a
// read followed by an insert; the store's unique index catches the race.
func (s *Service) Add(ctx context.Context, id *auth.Identity, in AddInput) (*models.Member, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", permission.ErrInvalidRoleLiteral, in.Role)
	}
	caller, err := s.gate.RequireTenantAction(ctx, id, in.SchoolID, permission.CanManageMembers)
	if err != nil {
		return nil, err
	}
	if !permission.CanManageBranch(caller.Role, caller.BranchID, in.BranchID) {
		return nil, auth.ErrInsufficientPermissions
	}
	if in.Role == permission.RoleOwner && !permission.CanAssignOwner(caller.Role) {
		return nil, auth.ErrInsufficientPermissions
	}
	for _, p := range in.Permissions {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", permission.ErrInvalidPermissionLiteral, p)
		}
	}

	_, err = s.members.FindByUserAndSchool(ctx, in.UserID, in.SchoolID)
	switch {
	case err == nil:
		return nil, ErrDuplicateMembership
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("check existing member: %w", err)
	}

	m := models.NewMember(in.UserID, in.SchoolID, in.Role, s.now())
	m.BranchID = in.BranchID
	m.Title = in.Title
	m.StudentID = in.StudentID
	m.StaffID = in.StaffID
	if in.ParentOf != nil {
		m.ParentOf = in.ParentOf
	}
	if in.Permissions != nil {
		m.Permissions = in.Permissions
	}
	m.InvitedBy = &id.UserID
	code := uuid.NewString()
	m.InvitationCode = &code
	m.CreatedBy = id.UserID
	m.UpdatedBy = id.UserID

	if _, err := s.members.Insert(ctx, m); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateMembership
		}
		return nil, fmt.Errorf("insert member: %w", err)
	}

	slog.Info("member added", "school_id", m.SchoolID, "member_id", m.ID, "user_id", m.UserID, "role", m.Role)
	audit.Record(ctx, s.audit, audit.Entry{
		SchoolID:     m.SchoolID,
		ActorID:      id.UserID,
		Action:       audit.ActionMemberAdded,
		ResourceType: "member",
		ResourceID:   m.ID,
		Details:      map[string]interface{}{"user_id": m.UserID, "role": m.Role},
	})
	return m, nil
}

// UpdateRole replaces the target's role. Granting or revoking Owner, and
// changing one's own role, is reserved to Owners.
func (s *Service) UpdateRole(ctx context.Context, id *auth.Identity, schoolID, memberID string, role permission.SchoolRole) (*models.Member, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", permission.ErrInvalidRoleLiteral, role)
	}
	target, caller, err := s.authorizeOnTarget(ctx, id, schoolID, memberID)
	if err != nil {
		return nil, err
	}
	ownerOnly := role == permission.RoleOwner || target.ID == caller.ID
	if ownerOnly && !permission.CanAssignOwner(caller.Role) {
		return nil, auth.ErrInsufficientPermissions
	}
	if target.Role == permission.RoleOwner && role != permission.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, target); err != nil {
			return nil, err
		}
	}

	if err := s.members.UpdateRole(ctx, target.ID, role, id.UserID); err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	s.record(ctx, id, target, audit.ActionMemberRoleChanged, map[string]interface{}{
		"from": target.Role, "to": role,
	})
	return s.reload(ctx, target.ID)
}

// SetStatus moves the target between Active, Inactive, Pending and Suspended.
func (s *Service) SetStatus(ctx context.Context, id *auth.Identity, schoolID, memberID string, status models.MemberStatus) (*models.Member, error) {
	if _, err := models.ParseMemberStatus(string(status)); err != nil {
		return nil, err
	}
	target, _, err := s.authorizeOnTarget(ctx, id, schoolID, memberID)
	if err != nil {
		return nil, err
	}
	if target.Role == permission.RoleOwner && status != models.MemberActive {
		if err := s.ensureAnotherOwner(ctx, target); err != nil {
			return nil, err
		}
	}

	if err := s.members.UpdateStatus(ctx, target.ID, status, id.UserID); err != nil {
		return nil, fmt.Errorf("update member status: %w", err)
	}
	s.record(ctx, id, target, audit.ActionMemberStatus, map[string]interface{}{
		"from": target.Status, "to": status,
	})
	return s.reload(ctx, target.ID)
}

// GrantPermissions adds explicit permissions on top of the role defaults.
// Grants are a set union; nothing is ever revoked here.
func (s *Service) GrantPermissions(ctx context.Context, id *auth.Identity, schoolID, memberID string, perms []permission.Permission) (*models.Member, error) {
	if len(perms) == 0 {
		return nil, ErrNoPermissions
	}
	for _, p := range perms {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", permission.ErrInvalidPermissionLiteral, p)
		}
	}
	target, err := s.loadTarget(ctx, schoolID, memberID)
	if err != nil {
		return nil, err
	}
	caller, err := s.gate.RequirePermission(ctx, id, target.SchoolID, permission.ManageRoles)
	if err != nil {
		return nil, err
	}
	if !permission.CanManageBranch(caller.Role, caller.BranchID, target.BranchID) {
		return nil, auth.ErrInsufficientPermissions
	}

	if err := s.members.AddPermissions(ctx, target.ID, perms, id.UserID); err != nil {
		return nil, fmt.Errorf("grant permissions: %w", err)
	}
	s.record(ctx, id, target, audit.ActionMemberGranted, map[string]interface{}{"permissions": perms})
	return s.reload(ctx, target.ID)
}

// Remove soft deletes the target. The document stays queryable.
func (s *Service) Remove(ctx context.Context, id *auth.Identity, schoolID, memberID string) (*models.Member, error) {
	target, _, err := s.authorizeOnTarget(ctx, id, schoolID, memberID)
	if err != nil {
		return nil, err
	}
	if target.Role == permission.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, target); err != nil {
			return nil, err
		}
	}

	if err := s.members.SoftDelete(ctx, target.ID, id.UserID); err != nil {
		return nil, fmt.Errorf("remove member: %w", err)
	}
	slog.Info("member removed", "school_id", target.SchoolID, "member_id", target.ID, "by", id.UserID)
	s.record(ctx, id, target, audit.ActionMemberRemoved, nil)
	return s.reload(ctx, target.ID)
}

// Get returns one member of a school the caller belongs to.
func (s *Service) Get(ctx context.Context, id *auth.Identity, schoolID, memberID string) (*models.Member, error) {
	target, err := s.loadTarget(ctx, schoolID, memberID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireMember(ctx, id, target.SchoolID); err != nil {
		return nil, err
	}
	return target, nil
}

// MyMemberships lists the caller's effectively active memberships.
func (s *Service) MyMemberships(ctx context.Context, id *auth.Identity) ([]models.Member, error) {
	if id == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	return s.members.Find(ctx, store.MemberFilter{UserID: id.UserID, ActiveOnly: true})
}

func (s *Service) SchoolMembers(ctx context.Context, id *auth.Identity, schoolID string) ([]models.Member, error) {
	if _, err := s.gate.RequireMember(ctx, id, schoolID); err != nil {
		return nil, err
	}
	return s.members.Find(ctx, store.MemberFilter{SchoolID: schoolID, ActiveOnly: true})
}

func (s *Service) MembersByRole(ctx context.Context, id *auth.Identity, schoolID string, role permission.SchoolRole) ([]models.Member, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", permission.ErrInvalidRoleLiteral, role)
	}
	if _, err := s.gate.RequireMember(ctx, id, schoolID); err != nil {
		return nil, err
	}
	return s.members.Find(ctx, store.MemberFilter{SchoolID: schoolID, Role: role, ActiveOnly: true})
}

func (s *Service) loadTarget(ctx context.Context, schoolID, memberID string) (*models.Member, error) {
	target, err := s.members.FindByID(ctx, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if target.IsDeleted || target.SchoolID != schoolID {
		return nil, ErrMemberNotFound
	}
	return target, nil
}

// authorizeOnTarget loads the target and applies the shared rule for member
// mutations: canManageMembers plus branch scope. Only Owners act on Owners.
func (s *Service) authorizeOnTarget(ctx context.Context, id *auth.Identity, schoolID, memberID string) (target, caller *models.Member, err error) {
	if id == nil {
		return nil, nil, auth.ErrAuthenticationRequired
	}
	target, err = s.loadTarget(ctx, schoolID, memberID)
	if err != nil {
		return nil, nil, err
	}
	caller, err = s.gate.RequireTenantAction(ctx, id, target.SchoolID, permission.CanManageMembers)
	if err != nil {
		return nil, nil, err
	}
	if !permission.CanManageBranch(caller.Role, caller.BranchID, target.BranchID) {
		return nil, nil, auth.ErrInsufficientPermissions
	}
	if target.Role == permission.RoleOwner && !permission.CanAssignOwner(caller.Role) {
		return nil, nil, auth.ErrInsufficientPermissions
	}
	return target, caller, nil
}

func (s *Service) ensureAnotherOwner(ctx context.Context, target *models.Member) error {
	if !target.IsEffectivelyActive() {
		return nil
	}
	n, err := s.members.Count(ctx, store.MemberFilter{
		SchoolID:   target.SchoolID,
		Role:       permission.RoleOwner,
		ActiveOnly: true,
	})
	if err != nil {
		return fmt.Errorf("count owners: %w", err)
	}
	if n <= 1 {
		return ErrCannotRemoveLastOwner
	}
	return nil
}

func (s *Service) reload(ctx context.Context, memberID string) (*models.Member, error) {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("reload member: %w", err)
	}
	return m, nil
}

func (s *Service) record(ctx context.Context, id *auth.Identity, target *models.Member, action string, details map[string]interface{}) {
	audit.Record(ctx, s.audit, audit.Entry{
		SchoolID:     target.SchoolID,
		ActorID:      id.UserID,
		Action:       action,
		ResourceType: "member",
		ResourceID:   target.ID,
		Details:      details,
	})
}
