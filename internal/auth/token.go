package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/schoolhub/membership/internal/permission"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Credential is the verified content of a bearer token.
type Credential struct {
	Subject    string
	SystemRole permission.SystemRole
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// TokenService issues and verifies HS256 bearer credentials.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, issuer string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

func (s *TokenService) Issue(subject string, role permission.SystemRole) (string, error) {
	now := s.now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) Verify(token string) (*Credential, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpired, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidOrExpired)
	}
	role, err := permission.ParseSystemRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpired, err)
	}

	cred := &Credential{
		Subject:    claims.Subject,
		SystemRole: role,
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	return cred, nil
}
