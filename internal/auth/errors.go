package auth

import "errors"

var (
	// ErrAuthenticationRequired means no credential or an invalid one.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrNotAMember means the caller has no effectively active membership
	// in the target school.
	ErrNotAMember = errors.New("not a member of this school")
	// ErrInsufficientPermissions means the caller is known but the role or
	// permission check failed.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrInvalidOrExpired        = errors.New("credential invalid or expired")
)
