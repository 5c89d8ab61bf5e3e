package domain

import (
	"context"
	"time"
)

// SessionEventKind names what happened to a session.
type SessionEventKind string

const (
	EventSignedIn       SessionEventKind = "SIGNED_IN"
	EventSignedOut      SessionEventKind = "SIGNED_OUT"
	EventTokenRefreshed SessionEventKind = "TOKEN_REFRESHED"
	EventUserUpdated    SessionEventKind = "USER_UPDATED"
)

// Session is the backend's authentication session as mirrored locally.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionEvent is delivered to session-change subscribers. Session is nil
// after a sign-out.
type SessionEvent struct {
	SessionID string           `json:"session_id"`
	Kind      SessionEventKind `json:"kind"`
	Session   *Session         `json:"session,omitempty"`
}

type sessionCtxKey struct{}

// ContextWithSession attaches the caller's backend session to ctx so data
// access calls run on its behalf.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext returns the session attached by ContextWithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}
