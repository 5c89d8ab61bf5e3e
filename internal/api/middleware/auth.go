package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/99minutos/inventory-web/internal/core/service"
)

const (
	// SessionCookie names the opaque browser session id.
	SessionCookie = "inventory_sid"

	authStateKey = "auth_state"
	bindingKey   = "auth_binding"
)

// AuthStates hands out the auth state of a browser session.
type AuthStates interface {
	Acquire(sid string) *service.AuthState
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Secure bool
	MaxAge int
}

type binding struct {
	states AuthStates
	opts   CookieOptions
}

// Auth makes the auth state of the calling browser available to every
// handler. A request without a valid session cookie is served a signed-out
// state and gets no cookie; one is issued by RotateSession on sign-in.
func Auth(states AuthStates, opts CookieOptions) echo.MiddlewareFunc {
	b := binding{states: states, opts: opts}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(bindingKey, b)

			ck, err := c.Cookie(SessionCookie)
			switch {
			case err != nil:
				c.Set(authStateKey, service.NewSignedOutState())
			case uuid.Validate(ck.Value) != nil:
				c.SetCookie(sessionCookie("", opts, -1))
				c.Set(authStateKey, service.NewSignedOutState())
			default:
				c.Set(authStateKey, states.Acquire(ck.Value))
			}
			return next(c)
		}
	}
}

// RotateSession moves the caller onto a new session id and returns its
// state. Sign-in and sign-up run on the new state, so a session id known
// before authentication never becomes an authenticated one. It panics when
// the route is not behind Auth.
func RotateSession(c echo.Context) *service.AuthState {
	b, ok := c.Get(bindingKey).(binding)
	if !ok {
		panic("middleware: session rotation requested outside the Auth middleware")
	}
	sid := uuid.NewString()
	state := b.states.Acquire(sid)
	c.SetCookie(sessionCookie(sid, b.opts, b.opts.MaxAge))
	c.Set(authStateKey, state)
	return state
}

func sessionCookie(sid string, opts CookieOptions, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// MustAuthState returns the state installed by Auth. It panics when the
// route is not behind Auth.
func MustAuthState(c echo.Context) *service.AuthState {
	state, ok := c.Get(authStateKey).(*service.AuthState)
	if !ok || state == nil {
		panic("middleware: auth state requested outside the Auth middleware")
	}
	return state
}

// SetAuthState installs state on c directly.
func SetAuthState(c echo.Context, state *service.AuthState) {
	c.Set(authStateKey, state)
}
