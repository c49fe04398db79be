package permission

// Role predicates used by tenant-scoped authorization.

// CanManageMembers gates add, update-role, status change and removal of members.
func CanManageMembers(role SchoolRole) bool {
	return IsSchoolLeader(role)
}

// CanAssignOwner gates granting or revoking the Owner role and acting on
// an Owner's membership.
func CanAssignOwner(role SchoolRole) bool {
	return role == RoleOwner
}

func IsSchoolLeader(role SchoolRole) bool {
	switch role {
	case RoleOwner, RoleDirector, RoleDeputyDirector:
		return true
	}
	return false
}

// CanManageBranch applies branch scoping on top of a school-scoped check.
// Owner is never branch scoped. For every other role a branch-scoped caller
// only reaches its own branch, and an unscoped caller only reaches unscoped
// resources.
func CanManageBranch(role SchoolRole, callerBranch, targetBranch *string) bool {
	if role == RoleOwner {
		return true
	}
	switch {
	case callerBranch != nil && targetBranch != nil:
		return *callerBranch == *targetBranch
	case callerBranch == nil && targetBranch == nil:
		return true
	default:
		return false
	}
}
