package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

// AuthService implements ports.CredentialService against /auth/v1.
type AuthService struct {
	client *Client
}

func NewAuthService(client *Client) *AuthService {
	return &AuthService{client: client}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is the session payload. On sign-up without an immediate
// session the backend answers with the bare user, which lands in ID/Email.
type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	User         *authUser `json:"user"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
}

func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp tokenResponse
	err := s.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentialsRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return s.toSession(resp), nil
}

func (s *AuthService) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp tokenResponse
	err := s.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   credentialsRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return s.toSession(resp), nil
}

func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	return s.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  accessToken,
	}, nil)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var resp tokenResponse
	err := s.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   refreshRequest{RefreshToken: refreshToken},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return s.toSession(resp), nil
}

func (s *AuthService) toSession(resp tokenResponse) *domain.Session {
	user := domain.User{ID: resp.ID, Email: resp.Email}
	if resp.User != nil {
		user = domain.User{ID: resp.User.ID, Email: resp.User.Email}
	}
	return &domain.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    s.expiry(resp),
		User:         user,
	}
}

// expiry prefers the absolute expires_at, then expires_in, then the exp
// claim of the access token itself.
func (s *AuthService) expiry(resp tokenResponse) time.Time {
	switch {
	case resp.ExpiresAt > 0:
		return time.Unix(resp.ExpiresAt, 0).UTC()
	case resp.ExpiresIn > 0:
		return s.client.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	case resp.AccessToken != "":
		return tokenExpiry(resp.AccessToken)
	}
	return time.Time{}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend verifies its own tokens on every call.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.UTC()
}
