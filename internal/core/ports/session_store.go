package ports

import (
	"context"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

// Subscription is the handle returned when registering for session changes.
type Subscription interface {
	Unsubscribe()
}

// SessionListener receives change notifications for one browser session.
type SessionListener func(domain.SessionEvent)

// SessionStore caches the backend session per browser session id and emits
// change notifications whenever it is written or cleared.
type SessionStore interface {
	// Load returns nil, nil when no session is stored under sid.
	Load(ctx context.Context, sid string) (*domain.Session, error)
	Save(ctx context.Context, sid string, kind domain.SessionEventKind, s *domain.Session) error
	Clear(ctx context.Context, sid string) error
	Subscribe(sid string, fn SessionListener) Subscription
}
