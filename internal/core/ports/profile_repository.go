package ports

import (
	"context"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

// ProfileRepository reads the profiles table.
type ProfileRepository interface {
	// FindByID returns nil, nil when no row matches.
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	// List returns every profile, newest first.
	List(ctx context.Context) ([]domain.Profile, error)
}

// ProfileService is the data access surface used by the auth layer and handlers.
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
}
