package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
)

// AuthClient binds the credential service and the session store to a single
// browser session id. Writes to the store are what produce session-change
// notifications; AuthClient itself keeps no state.
type AuthClient struct {
	sid     string
	creds   ports.CredentialService
	store   ports.SessionStore
	refresh *singleflight.Group
	now     func() time.Time
	logger  zerolog.Logger
}

// NewAuthClient builds the client for sid. refresh may be shared between
// clients; concurrent refreshes of the same session collapse into one call.
func NewAuthClient(sid string, creds ports.CredentialService, store ports.SessionStore, refresh *singleflight.Group, logger zerolog.Logger) *AuthClient {
	if refresh == nil {
		refresh = &singleflight.Group{}
	}
	return &AuthClient{
		sid:     sid,
		creds:   creds,
		store:   store,
		refresh: refresh,
		now:     time.Now,
		logger:  logger,
	}
}

func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	sess, err := c.creds.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, c.sid, domain.EventSignedIn, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// SignUp creates the account. When the backend answers without an access
// token (confirmation pending) nothing is stored and the caller is not
// signed in.
func (c *AuthClient) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	sess, err := c.creds.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.AccessToken == "" {
		return sess, nil
	}
	if err := c.store.Save(ctx, c.sid, domain.EventSignedIn, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// SignOut revokes the session at the backend and clears it here. A backend
// that no longer accepts the token has nothing left to revoke, so the local
// session is cleared anyway.
func (c *AuthClient) SignOut(ctx context.Context) error {
	sess, err := c.store.Load(ctx, c.sid)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess != nil {
		if err := c.creds.SignOut(ctx, sess.AccessToken); err != nil && !rejected(err) {
			return err
		}
	}
	return c.store.Clear(ctx, c.sid)
}

// GetSession returns the cached session, refreshing it first when the access
// token has expired. A session that cannot be refreshed (no refresh token, or
// the backend rejects it) is cleared, which announces SIGNED_OUT, and nil is
// returned. Other refresh failures are returned and the session is kept.
func (c *AuthClient) GetSession(ctx context.Context) (*domain.Session, error) {
	sess, err := c.store.Load(ctx, c.sid)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || !sess.Expired(c.now()) {
		return sess, nil
	}
	if sess.RefreshToken == "" {
		return nil, c.expire(ctx)
	}

	v, err, _ := c.refresh.Do(c.sid, func() (any, error) {
		fresh, err := c.creds.Refresh(ctx, sess.RefreshToken)
		if err != nil {
			return nil, err
		}
		if err := c.store.Save(ctx, c.sid, domain.EventTokenRefreshed, fresh); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return fresh, nil
	})
	if err != nil {
		if rejected(err) {
			c.logger.Info().Str("sid", c.sid).Msg("session refresh rejected, signing out")
			return nil, c.expire(ctx)
		}
		c.logger.Warn().Err(err).Str("sid", c.sid).Msg("session refresh failed")
		return nil, err
	}
	fresh, _ := v.(*domain.Session)
	if fresh == nil {
		return nil, c.expire(ctx)
	}
	return fresh, nil
}

// expire drops a session that can no longer be used.
func (c *AuthClient) expire(ctx context.Context) error {
	if err := c.store.Clear(ctx, c.sid); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// rejected reports whether the backend refused the credentials outright, as
// opposed to failing to answer.
func rejected(err error) bool {
	return errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrForbidden)
}

func (c *AuthClient) OnSessionChange(fn ports.SessionListener) ports.Subscription {
	return c.store.Subscribe(c.sid, fn)
}
