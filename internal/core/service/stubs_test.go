package service

import (
	"context"
	"sync"

	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Auth client stub
// ---------------------------------------------------------------------------

type stubSubscription struct {
	mu           sync.Mutex
	unsubscribed bool
}

func (s *stubSubscription) Unsubscribe() {
	s.mu.Lock()
	s.unsubscribed = true
	s.mu.Unlock()
}

func (s *stubSubscription) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

type stubAuthClient struct {
	mu         sync.Mutex
	session    *domain.Session
	getErr     error
	signInFn   func(email, password string) (*domain.Session, error)
	signUpFn   func(email, password string) (*domain.Session, error)
	signOutErr error
	listener   ports.SessionListener
	sub        *stubSubscription
	lastEmail  string
}

func (c *stubAuthClient) SignInWithPassword(_ context.Context, email, password string) (*domain.Session, error) {
	c.mu.Lock()
	c.lastEmail = email
	c.mu.Unlock()
	return c.signInFn(email, password)
}

func (c *stubAuthClient) SignUp(_ context.Context, email, password string) (*domain.Session, error) {
	c.mu.Lock()
	c.lastEmail = email
	c.mu.Unlock()
	return c.signUpFn(email, password)
}

func (c *stubAuthClient) SignOut(context.Context) error {
	return c.signOutErr
}

func (c *stubAuthClient) GetSession(context.Context) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.getErr
}

func (c *stubAuthClient) OnSessionChange(fn ports.SessionListener) ports.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = fn
	c.sub = &stubSubscription{}
	return c.sub
}

func (c *stubAuthClient) emit(ev domain.SessionEvent) {
	c.mu.Lock()
	fn := c.listener
	c.mu.Unlock()
	fn(ev)
}

func (c *stubAuthClient) email() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEmail
}

// ---------------------------------------------------------------------------
// Profile service stub
// ---------------------------------------------------------------------------

type stubProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	err      error
	// gates, when set for a user id, block GetProfile until closed.
	gates map[string]chan struct{}
	calls int
}

func newStubProfiles(profiles ...domain.Profile) *stubProfiles {
	s := &stubProfiles{profiles: make(map[string]*domain.Profile), gates: make(map[string]chan struct{})}
	for i := range profiles {
		p := profiles[i]
		s.profiles[p.ID] = &p
	}
	return s
}

func (s *stubProfiles) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gates[userID]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (s *stubProfiles) ListProfiles(context.Context) ([]domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Product repository stub
// ---------------------------------------------------------------------------

type stubProductRepo struct {
	products      []domain.Product
	err           error
	noRow         bool
	lastCreatedBy *string
	deleted       []string
}

func (r *stubProductRepo) List(context.Context) ([]domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.products, nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, p := range r.products {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubProductRepo) Insert(_ context.Context, in domain.ProductInput, createdBy *string) (*domain.Product, error) {
	r.lastCreatedBy = createdBy
	if r.err != nil {
		return nil, r.err
	}
	if r.noRow {
		return nil, nil
	}
	p := domain.Product{ID: "p-new", Name: in.Name, Category: in.Category, Quantity: in.Quantity, Unit: in.Unit, Price: in.Price, CreatedBy: createdBy}
	r.products = append(r.products, p)
	return &p, nil
}

func (r *stubProductRepo) Update(_ context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.noRow {
		return nil, nil
	}
	for i := range r.products {
		if r.products[i].ID == id {
			patch.Apply(&r.products[i])
			clone := r.products[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubProductRepo) Delete(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, id)
	return nil
}

// ---------------------------------------------------------------------------
// Credential service and session store stubs
// ---------------------------------------------------------------------------

type stubCreds struct {
	session     *domain.Session
	err         error
	refreshed   *domain.Session
	refreshErr  error
	refreshes   int
	signedOut   []string
}

func (c *stubCreds) SignInWithPassword(context.Context, string, string) (*domain.Session, error) {
	return c.session, c.err
}

func (c *stubCreds) SignUp(context.Context, string, string) (*domain.Session, error) {
	return c.session, c.err
}

func (c *stubCreds) SignOut(_ context.Context, token string) error {
	c.signedOut = append(c.signedOut, token)
	return c.err
}

func (c *stubCreds) Refresh(context.Context, string) (*domain.Session, error) {
	c.refreshes++
	return c.refreshed, c.refreshErr
}

type savedEvent struct {
	sid  string
	kind domain.SessionEventKind
}

type stubStore struct {
	sessions map[string]*domain.Session
	events   []savedEvent
	cleared  []string
}

func newStubStore() *stubStore {
	return &stubStore{sessions: make(map[string]*domain.Session)}
}

func (s *stubStore) Load(_ context.Context, sid string) (*domain.Session, error) {
	return s.sessions[sid], nil
}

func (s *stubStore) Save(_ context.Context, sid string, kind domain.SessionEventKind, sess *domain.Session) error {
	s.sessions[sid] = sess
	s.events = append(s.events, savedEvent{sid: sid, kind: kind})
	return nil
}

func (s *stubStore) Clear(_ context.Context, sid string) error {
	delete(s.sessions, sid)
	s.cleared = append(s.cleared, sid)
	return nil
}

func (s *stubStore) Subscribe(string, ports.SessionListener) ports.Subscription {
	return &stubSubscription{}
}

func sessionFor(userID string) *domain.Session {
	return &domain.Session{AccessToken: "tok-" + userID, User: domain.User{ID: userID, Email: userID + "@miaoda.com"}}
}
