package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/api/middleware"
	"github.com/99minutos/inventory-web/internal/api/view"
	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
	"github.com/99minutos/inventory-web/internal/core/service"
)

// ---------------------------------------------------------------------------
// Auth client stub
// ---------------------------------------------------------------------------

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type stubAuthClient struct {
	mu         sync.Mutex
	session    *domain.Session
	signInErr  error
	signUpSess *domain.Session
	signUpErr  error
	signOutErr error
	lastEmail  string
}

func (s *stubAuthClient) SignInWithPassword(_ context.Context, email, _ string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEmail = email
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return &domain.Session{AccessToken: "tok", User: domain.User{ID: "u1", Email: email}}, nil
}

func (s *stubAuthClient) SignUp(_ context.Context, email, _ string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEmail = email
	return s.signUpSess, s.signUpErr
}

func (s *stubAuthClient) SignOut(context.Context) error { return s.signOutErr }

func (s *stubAuthClient) GetSession(context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, nil
}

func (s *stubAuthClient) OnSessionChange(ports.SessionListener) ports.Subscription {
	return noopSubscription{}
}

// ---------------------------------------------------------------------------
// Service stubs
// ---------------------------------------------------------------------------

type stubProfileService struct {
	profile  *domain.Profile
	profiles []domain.Profile
}

func (s *stubProfileService) GetProfile(context.Context, string) (*domain.Profile, error) {
	return s.profile, nil
}

func (s *stubProfileService) ListProfiles(context.Context) ([]domain.Profile, error) {
	return s.profiles, nil
}

type stubProductService struct {
	products    []domain.Product
	product     *domain.Product
	err         error
	lastInput   domain.ProductInput
	lastPatch   domain.ProductPatch
	lastID      string
	lastSession *domain.Session
}

func (s *stubProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.lastSession = domain.SessionFromContext(ctx)
	return s.products, s.err
}

func (s *stubProductService) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.lastID = id
	return s.product, s.err
}

func (s *stubProductService) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	s.lastInput = in
	s.lastSession = domain.SessionFromContext(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: "p1", Name: in.Name}, nil
}

func (s *stubProductService) UpdateProduct(_ context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	s.lastID = id
	s.lastPatch = patch
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: id}, nil
}

func (s *stubProductService) DeleteProduct(_ context.Context, id string) error {
	s.lastID = id
	return s.err
}

func (s *stubProductService) GetDashboardStats(context.Context) (domain.DashboardStats, error) {
	return domain.ComputeDashboardStats(s.products), s.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type stubRenderer struct{}

func (stubRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	_, err := io.WriteString(w, "page:"+name)
	if err != nil {
		return err
	}
	if pd, ok := data.(view.PageData); ok && pd.Error != "" {
		_, err = io.WriteString(w, " error:"+pd.Error)
	}
	return err
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.Renderer = stubRenderer{}
	return e
}

// signedInState returns a resolved state for user u1 with role.
func signedInState(t *testing.T, role domain.Role) (*service.AuthState, *stubAuthClient) {
	t.Helper()
	client := &stubAuthClient{session: &domain.Session{AccessToken: "tok-u1", User: domain.User{ID: "u1"}}}
	return startedState(t, client, &stubProfileService{profile: &domain.Profile{ID: "u1", Role: role}}), client
}

func signedOutState(t *testing.T) (*service.AuthState, *stubAuthClient) {
	t.Helper()
	client := &stubAuthClient{}
	return startedState(t, client, &stubProfileService{profile: &domain.Profile{ID: "u1", Role: domain.RoleStoreKeeper}}), client
}

func startedState(t *testing.T, client *stubAuthClient, profiles *stubProfileService) *service.AuthState {
	t.Helper()
	state := service.NewAuthState(client, profiles, "", zerolog.Nop())
	state.Start(context.Background())
	t.Cleanup(state.Close)

	deadline := time.Now().Add(time.Second)
	for state.Snapshot().Loading {
		if time.Now().After(deadline) {
			t.Fatalf("auth state never finished loading")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return state
}

// fixedStates hands every session id the same state.
type fixedStates struct{ state *service.AuthState }

func (f fixedStates) Acquire(string) *service.AuthState { return f.state }

// withSessions runs h behind the Auth middleware; a rotated session resolves
// to state.
func withSessions(state *service.AuthState, h echo.HandlerFunc) echo.HandlerFunc {
	return middleware.Auth(fixedStates{state}, middleware.CookieOptions{})(h)
}

func newJSONContext(e *echo.Echo, method, target, body string, state *service.AuthState) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	middleware.SetAuthState(c, state)
	return c, rec
}

func newFormContext(e *echo.Echo, target, body string, state *service.AuthState) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	middleware.SetAuthState(c, state)
	return c, rec
}

// statusOf runs the error through the same mapping the server uses.
func statusOf(err error) int {
	code, _ := StatusFor(err)
	return code
}

func hasSessionCookie(rec *httptest.ResponseRecorder) bool {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookie && ck.Value != "" {
			return true
		}
	}
	return false
}
