package middleware

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
	"github.com/99minutos/inventory-web/internal/core/service"
)

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type fixedClient struct {
	session *domain.Session
}

func (f *fixedClient) SignInWithPassword(context.Context, string, string) (*domain.Session, error) {
	return nil, domain.ErrInvalidCredentials
}

func (f *fixedClient) SignUp(context.Context, string, string) (*domain.Session, error) {
	return nil, domain.ErrUserExists
}

func (f *fixedClient) SignOut(context.Context) error { return nil }

func (f *fixedClient) GetSession(context.Context) (*domain.Session, error) { return f.session, nil }

func (f *fixedClient) OnSessionChange(ports.SessionListener) ports.Subscription {
	return noopSubscription{}
}

type fixedProfiles struct {
	profile *domain.Profile
}

func (f fixedProfiles) GetProfile(context.Context, string) (*domain.Profile, error) {
	return f.profile, nil
}

func (f fixedProfiles) ListProfiles(context.Context) ([]domain.Profile, error) {
	return nil, nil
}

// resolvedState returns a started state that has finished loading. role ""
// means signed out.
func resolvedState(t *testing.T, role domain.Role) *service.AuthState {
	t.Helper()

	client := &fixedClient{}
	profiles := fixedProfiles{}
	if role != "" {
		client.session = &domain.Session{AccessToken: "tok", User: domain.User{ID: "u1"}}
		profiles.profile = &domain.Profile{ID: "u1", Role: role}
	}

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

func loadingState() *service.AuthState {
	return service.NewAuthState(&fixedClient{}, fixedProfiles{}, "", zerolog.Nop())
}

type stubRenderer struct{}

func (stubRenderer) Render(w io.Writer, name string, _ any, _ echo.Context) error {
	_, err := io.WriteString(w, "rendered:"+name)
	return err
}
