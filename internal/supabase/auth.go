package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// tokenResponse is what /token returns for every grant type.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    json.Number `json:"expires_in"`
	ExpiresAt    json.Number `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t tokenResponse) session(now time.Time) (*domain.Session, error) {
	if t.AccessToken == "" {
		return nil, errors.New("supabase: token response without access_token")
	}
	if t.User.ID == "" {
		return nil, errors.New("supabase: token response without user id")
	}

	expires := now.Add(time.Hour)
	if at, err := t.ExpiresAt.Int64(); err == nil && at > 0 {
		expires = time.Unix(at, 0).UTC()
	} else if in, err := t.ExpiresIn.Int64(); err == nil && in > 0 {
		expires = now.Add(time.Duration(in) * time.Second)
	}

	return &domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expires,
		User: domain.User{
			ID:    t.User.ID,
			Email: t.User.Email,
		},
	}, nil
}

// AuthorizeURL builds the provider hand-off URL for a PKCE flow.
func (c *Client) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return c.baseURL + authPrefix + "/authorize?" + q.Encode()
}

// ExchangeCode trades the callback code and PKCE verifier for a session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*domain.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token",
		query:  url.Values{"grant_type": {"pkce"}},
		body: map[string]string{
			"auth_code":     code,
			"code_verifier": verifier,
		},
	}, &tr)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tr.session(time.Now())
}

// Refresh trades a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh session: no refresh token")
	}

	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &tr)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return tr.session(time.Now())
}

// SignOut revokes the session server-side.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/logout",
		token:  accessToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Health pings the auth API.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, request{method: http.MethodGet, path: authPrefix + "/health"}, nil); err != nil {
		return fmt.Errorf("auth health: %w", err)
	}
	return nil
}
