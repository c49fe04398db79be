package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/schoolhub/membership/internal/config"
)

var ErrProviderRejected = errors.New("identity provider rejected the request")

// Profile is what the identity provider knows about a user.
type Profile struct {
	ExternalID string
	Username   string
	Email      *string
	FirstName  *string
	LastName   *string
	AvatarURL  *string
}

type Provider interface {
	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code, state string) (string, error)
	UserInfo(ctx context.Context, accessToken string) (*Profile, error)
}

// OAuthClient talks to an OAuth2 provider whose userinfo endpoint wraps the
// profile in a "user" object.
type OAuthClient struct {
	cfg        config.OAuthConfig
	httpClient *http.Client
}

func NewOAuthClient(cfg config.OAuthConfig) *OAuthClient {
	return &OAuthClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type userInfoResponse struct {
	User struct {
		ID        string  `json:"_id"`
		Username  string  `json:"username"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Picture   *string `json:"profile"`
		Email     *string `json:"email"`
	} `json:"user"`
	Status string `json:"status"`
}

func (c *OAuthClient) Exchange(ctx context.Context, code, state string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"redirect_uri":  c.cfg.RedirectURL,
		"state":         state,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("exchange code: %w: empty access token", ErrProviderRejected)
	}
	return tok.AccessToken, nil
}

func (c *OAuthClient) UserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var info userInfoResponse
	if err := c.do(req, &info); err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.User.ID == "" {
		return nil, fmt.Errorf("fetch userinfo: %w: missing user id", ErrProviderRejected)
	}
	return &Profile{
		ExternalID: info.User.ID,
		Username:   info.User.Username,
		Email:      info.User.Email,
		FirstName:  info.User.FirstName,
		LastName:   info.User.LastName,
		AvatarURL:  info.User.Picture,
	}, nil
}

func (c *OAuthClient) do(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w (%d): %s", ErrProviderRejected, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
