package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/inventory-web/internal/api/metrics"
	"github.com/99minutos/inventory-web/internal/api/middleware"
	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/service"
)

// AuthHandler exposes the caller's auth state and its sign-in, sign-up and
// sign-out actions as JSON.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type credentialsRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"required,max=128"`
}

type sessionResponse struct {
	Loading       bool            `json:"loading"`
	Authenticated bool            `json:"authenticated"`
	IsManager     bool            `json:"isManager"`
	User          *domain.User    `json:"user,omitempty"`
	Profile       *domain.Profile `json:"profile,omitempty"`
}

type signUpResponse struct {
	sessionResponse
	ConfirmationPending bool `json:"confirmationPending"`
}

func toSessionResponse(s service.Snapshot) sessionResponse {
	return sessionResponse{
		Loading:       s.Loading,
		Authenticated: s.User() != nil,
		IsManager:     s.IsManager(),
		User:          s.User(),
		Profile:       s.Profile,
	}
}

// Session reports the caller's current auth state.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, toSessionResponse(middleware.MustAuthState(c).Snapshot()))
}

// SignIn exchanges username and password for a session. The attempt runs on
// a freshly issued session cookie.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	state := middleware.RotateSession(c)
	err := state.SignIn(c.Request().Context(), req.Username, req.Password)
	metrics.AuthAttemptsTotal.WithLabelValues("signin", authResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(state.Snapshot()))
}

// SignUp creates an account. When the backend signs the user in straight
// away the new session is returned; otherwise confirmation is pending.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Credentials"
// @Success      201   {object}  signUpResponse
// @Success      202   {object}  signUpResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	state := middleware.RotateSession(c)
	signedIn, err := state.SignUp(c.Request().Context(), req.Username, req.Password)
	metrics.AuthAttemptsTotal.WithLabelValues("signup", authResult(err)).Inc()
	if err != nil {
		return err
	}

	resp := signUpResponse{sessionResponse: toSessionResponse(state.Snapshot()), ConfirmationPending: !signedIn}
	if !signedIn {
		return c.JSON(http.StatusAccepted, resp)
	}
	return c.JSON(http.StatusCreated, resp)
}

// SignOut ends the session.
//
// @Summary      Sign out
// @Tags         auth
// @Success      204
// @Failure      500  {object}  errorResponse
// @Router       /api/auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	err := middleware.MustAuthState(c).SignOut(c.Request().Context())
	metrics.AuthAttemptsTotal.WithLabelValues("signout", authResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func authResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrUserExists):
		return "user_exists"
	default:
		return "error"
	}
}
