// Package identity maps identity-provider accounts to local users and
// issues platform credentials for them.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store"
)

var ErrUserNotFound = errors.New("user not found")

type Service struct {
	users    store.UserStore
	provider Provider
	tokens   *auth.TokenService
	now      func() time.Time
}

func NewService(users store.UserStore, provider Provider, tokens *auth.TokenService) *Service {
	return &Service{
		users:    users,
		provider: provider,
		tokens:   tokens,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

// Login completes the authorization-code flow and returns a platform
// credential for the local user.
func (s *Service) Login(ctx context.Context, code, state string) (*Session, error) {
	accessToken, err := s.provider.Exchange(ctx, code, state)
	if err != nil {
		return nil, err
	}
	profile, err := s.provider.UserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	u, err := s.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(u.ID, u.SystemRole)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, TokenType: "Bearer", User: u}, nil
}

// Resolve finds the local user for profile, creating it on first sight. The
// very first user of the platform becomes SuperAdmin.
func (s *Service) Resolve(ctx context.Context, profile *Profile) (*models.User, error) {
	u, err := s.users.FindByExternalID(ctx, profile.ExternalID)
	if err == nil {
		if err := s.users.TouchLogin(ctx, u.ID); err != nil {
			slog.Warn("record last login", "user_id", u.ID, "error", err)
		}
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	now := s.now()
	u = &models.User{
		ExternalID: profile.ExternalID,
		Username:   profile.Username,
		Email:      profile.Email,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		AvatarURL:  profile.AvatarURL,
		SystemRole: permission.SystemUser,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastLogin:  &now,
	}
	if count == 0 {
		u.SystemRole = permission.SystemSuperAdmin
	}

	if _, err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Concurrent first login for the same account.
			return s.users.FindByExternalID(ctx, profile.ExternalID)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	slog.Info("user created", "user_id", u.ID, "system_role", u.SystemRole)
	return u, nil
}

func (s *Service) Me(ctx context.Context, id *auth.Identity) (*models.User, error) {
	if id == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	u, err := s.users.FindByID(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
