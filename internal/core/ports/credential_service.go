package ports

import (
	"context"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

// CredentialService is the backend's authentication endpoint. It exchanges
// credentials for sessions and never caches anything itself.
type CredentialService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	// SignUp creates the account. The backend creates the matching profile
	// out of band.
	SignUp(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
}
