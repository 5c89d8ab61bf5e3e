package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
)

// Snapshot is a point-in-time copy of an AuthState.
type Snapshot struct {
	Session *domain.Session
	Profile *domain.Profile
	Loading bool
}

// User returns the signed-in user, or nil.
func (s Snapshot) User() *domain.User {
	if s.Session == nil {
		return nil
	}
	return &s.Session.User
}

// IsManager is false until the profile has resolved.
func (s Snapshot) IsManager() bool {
	return s.Profile.IsManager()
}

// AuthState holds {user, profile, loading} for one browser session and keeps
// it in step with the backend through the session-change subscription.
//
// State only moves through Start, the subscription callback, and the
// SignIn/SignUp/SignOut actions. Profile fetches are applied only while the
// session they were started for still belongs to the same user, so a slow
// fetch from an older session cannot overwrite a newer one.
type AuthState struct {
	client      ports.AuthClient
	profiles    ports.ProfileService
	emailDomain string
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	session  *domain.Session
	profile  *domain.Profile
	loading  bool
	version  uint64
	sub      ports.Subscription
	watchers map[int]func(Snapshot)
	nextID   int
	closed   bool
}

func NewAuthState(client ports.AuthClient, profiles ports.ProfileService, emailDomain string, logger zerolog.Logger) *AuthState {
	return &AuthState{
		client:      client,
		profiles:    profiles,
		emailDomain: emailDomain,
		logger:      logger,
		loading:     true,
		watchers:    make(map[int]func(Snapshot)),
	}
}

// NewSignedOutState returns a resolved, signed-out state that belongs to no
// browser session. It serves requests that carry no session cookie; signing
// in always happens on a state from the registry.
func NewSignedOutState() *AuthState {
	return &AuthState{
		logger:   zerolog.Nop(),
		watchers: make(map[int]func(Snapshot)),
	}
}

// Start registers for session changes and fetches the current session once
// in the background. Background work is bound to parent and stops on Close.
func (a *AuthState) Start(parent context.Context) {
	a.mu.Lock()
	a.ctx, a.cancel = context.WithCancel(parent)
	a.sub = a.client.OnSessionChange(a.handleSessionChange)
	version := a.version
	a.mu.Unlock()

	go a.initialize(version)
}

func (a *AuthState) initialize(version uint64) {
	sess, err := a.client.GetSession(a.ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("initial session fetch failed")
		sess = nil
	}

	a.mu.Lock()
	if a.version != version {
		// A notification or an action already replaced the session.
		a.mu.Unlock()
		return
	}
	a.setSessionLocked(sess)
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)

	if sess != nil {
		a.loadProfile(a.ctx, sess.User.ID)
	}
}

func (a *AuthState) handleSessionChange(ev domain.SessionEvent) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.setSessionLocked(ev.Session)
	snap := a.snapshotLocked()
	ctx := a.ctx
	a.mu.Unlock()
	a.notify(snap)

	a.logger.Debug().Str("event", string(ev.Kind)).Msg("session changed")
	if ev.Session != nil {
		go a.loadProfile(ctx, ev.Session.User.ID)
	}
}

// setSessionLocked replaces the session. A nil session ends loading at once;
// otherwise loading is left to the profile fetch.
func (a *AuthState) setSessionLocked(sess *domain.Session) {
	a.version++
	a.session = sess
	if sess == nil {
		a.profile = nil
		a.loading = false
		return
	}
	if a.profile != nil && a.profile.ID != sess.User.ID {
		a.profile = nil
	}
}

// loadProfile fetches the profile for userID. Success sets it, a failure is
// logged and leaves it as is. Either way loading is cleared, unless the
// session has moved on to another user in the meantime.
func (a *AuthState) loadProfile(ctx context.Context, userID string) {
	profile, err := a.profiles.GetProfile(a.profileContext(ctx), userID)

	a.mu.Lock()
	if a.session == nil || a.session.User.ID != userID {
		a.mu.Unlock()
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("user_id", userID).Msg("error loading profile")
	} else {
		a.profile = profile
	}
	a.loading = false
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)
}

func (a *AuthState) profileContext(ctx context.Context) context.Context {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil {
		return ctx
	}
	return domain.ContextWithSession(ctx, sess)
}

// SignIn exchanges username and password for a session and loads the
// profile before returning. The subscription will deliver the same session
// again; both paths end in the same state.
func (a *AuthState) SignIn(ctx context.Context, username, password string) error {
	if a.client == nil {
		return domain.ErrNoSession
	}
	sess, err := a.client.SignInWithPassword(ctx, domain.SyntheticEmail(username, a.emailDomain), password)
	if err != nil {
		return err
	}
	a.adopt(ctx, sess)
	return nil
}

// SignUp creates the account and, when the backend signs the user straight
// in, loads the profile. It returns the backend error unchanged, e.g.
// domain.ErrUserExists.
func (a *AuthState) SignUp(ctx context.Context, username, password string) (signedIn bool, err error) {
	if a.client == nil {
		return false, domain.ErrNoSession
	}
	sess, err := a.client.SignUp(ctx, domain.SyntheticEmail(username, a.emailDomain), password)
	if err != nil {
		return false, err
	}
	if sess == nil || sess.AccessToken == "" {
		return false, nil
	}
	a.adopt(ctx, sess)
	return true, nil
}

func (a *AuthState) adopt(ctx context.Context, sess *domain.Session) {
	if sess == nil {
		return
	}
	a.mu.Lock()
	a.setSessionLocked(sess)
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)

	a.loadProfile(ctx, sess.User.ID)
}

// SignOut signs out at the backend, then clears user and profile.
func (a *AuthState) SignOut(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	if err := a.client.SignOut(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.setSessionLocked(nil)
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)
	return nil
}

// CurrentSession returns the session to call the backend with. An expired
// session is refreshed through the client first; the refreshed one replaces
// it here and keeps the loaded profile. When the client reports the session
// gone, the state is signed out and ErrNoSession returned.
func (a *AuthState) CurrentSession(ctx context.Context) (*domain.Session, error) {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil {
		return nil, domain.ErrNoSession
	}
	if !sess.Expired(time.Now()) {
		return sess, nil
	}

	fresh, err := a.client.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.session == sess {
		a.setSessionLocked(fresh)
	}
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)

	if fresh == nil {
		return nil, domain.ErrNoSession
	}
	return fresh, nil
}

// Snapshot returns the current state.
func (a *AuthState) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *AuthState) IsManager() bool {
	return a.Snapshot().IsManager()
}

func (a *AuthState) snapshotLocked() Snapshot {
	return Snapshot{Session: a.session, Profile: a.profile, Loading: a.loading}
}

// WaitLoaded blocks until the state has finished loading or ctx is done,
// and reports whether loading finished.
func (a *AuthState) WaitLoaded(ctx context.Context) bool {
	done := make(chan struct{})
	var once sync.Once
	stop := a.Watch(func(s Snapshot) {
		if !s.Loading {
			once.Do(func() { close(done) })
		}
	})
	defer stop()

	if !a.Snapshot().Loading {
		return true
	}
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Watch registers fn to be called after every state change. The returned
// func removes it.
func (a *AuthState) Watch(fn func(Snapshot)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.watchers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.watchers, id)
		a.mu.Unlock()
	}
}

func (a *AuthState) notify(snap Snapshot) {
	a.mu.Lock()
	fns := make([]func(Snapshot), 0, len(a.watchers))
	for _, fn := range a.watchers {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Close unsubscribes from session changes and stops background work.
func (a *AuthState) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	sub, cancel := a.sub, a.cancel
	a.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}
