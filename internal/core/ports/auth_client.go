package ports

import (
	"context"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

// AuthClient is the backend auth contract as seen by one browser session.
type AuthClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context) error
	// GetSession returns nil, nil when signed out.
	GetSession(ctx context.Context) (*domain.Session, error)
	OnSessionChange(fn SessionListener) Subscription
}
