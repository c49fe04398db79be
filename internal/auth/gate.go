package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/schoolhub/membership/internal/metrics"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store"
)

// Gate resolves tenant-scoped authorization from the caller's Member row.
// Nothing is cached; every check reads the store.
type Gate struct {
	members store.MemberStore
}

func NewGate(members store.MemberStore) *Gate {
	return &Gate{members: members}
}

// RequireTenantAction loads the caller's effectively active membership in
// schoolID and evaluates allowed against its role.
func (g *Gate) RequireTenantAction(ctx context.Context, id *Identity, schoolID string, allowed func(permission.SchoolRole) bool) (*models.Member, error) {
	m, err := g.membership(ctx, "role", id, schoolID)
	if err != nil {
		return nil, err
	}
	if allowed != nil && !allowed(m.Role) {
		metrics.RecordAuthzDecision("role", "insufficient_permissions")
		return nil, ErrInsufficientPermissions
	}
	metrics.RecordAuthzDecision("role", "allowed")
	return m, nil
}

// RequirePermission is RequireTenantAction keyed on a fine-grained
// permission, honoring explicit grants.
func (g *Gate) RequirePermission(ctx context.Context, id *Identity, schoolID string, p permission.Permission) (*models.Member, error) {
	m, err := g.membership(ctx, "permission", id, schoolID)
	if err != nil {
		return nil, err
	}
	if !m.HasPermission(p) {
		metrics.RecordAuthzDecision("permission", "insufficient_permissions")
		return nil, ErrInsufficientPermissions
	}
	metrics.RecordAuthzDecision("permission", "allowed")
	return m, nil
}

// RequireMember only requires an effectively active membership.
func (g *Gate) RequireMember(ctx context.Context, id *Identity, schoolID string) (*models.Member, error) {
	m, err := g.membership(ctx, "member", id, schoolID)
	if err != nil {
		return nil, err
	}
	metrics.RecordAuthzDecision("member", "allowed")
	return m, nil
}

func (g *Gate) membership(ctx context.Context, check string, id *Identity, schoolID string) (*models.Member, error) {
	if id == nil {
		metrics.RecordAuthzDecision(check, "unauthenticated")
		return nil, ErrAuthenticationRequired
	}
	m, err := g.members.FindByUserAndSchool(ctx, id.UserID, schoolID)
	if errors.Is(err, store.ErrNotFound) {
		metrics.RecordAuthzDecision(check, "not_a_member")
		return nil, ErrNotAMember
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	if !m.IsEffectivelyActive() {
		metrics.RecordAuthzDecision(check, "not_a_member")
		return nil, ErrNotAMember
	}
	return m, nil
}
