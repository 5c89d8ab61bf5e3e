package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/core/ports"
)

const (
	defaultIdleTTL = 30 * time.Minute
	sweepSchedule  = "@every 1m"
)

// AuthClientFactory builds the backend auth client for a browser session id.
type AuthClientFactory func(sid string) ports.AuthClient

type registryEntry struct {
	state    *AuthState
	lastSeen time.Time
}

// AuthRegistry owns one AuthState per browser session. States are created on
// first use and closed after sitting idle for longer than the idle TTL.
type AuthRegistry struct {
	newClient   AuthClientFactory
	profiles    ports.ProfileService
	emailDomain string
	idleTTL     time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	cron   *cron.Cron

	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewAuthRegistry(newClient AuthClientFactory, profiles ports.ProfileService, emailDomain string, idleTTL time.Duration, logger zerolog.Logger) *AuthRegistry {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AuthRegistry{
		newClient:   newClient,
		profiles:    profiles,
		emailDomain: emailDomain,
		idleTTL:     idleTTL,
		logger:      logger,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		cron:        cron.New(),
		entries:     make(map[string]*registryEntry),
	}
}

// Acquire returns the state for sid, creating and starting it if needed.
func (r *AuthRegistry) Acquire(sid string) *AuthState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[sid]; ok {
		e.lastSeen = r.now()
		return e.state
	}

	log := r.logger.With().Str("sid", sid).Logger()
	state := NewAuthState(r.newClient(sid), r.profiles, r.emailDomain, log)
	state.Watch(func(s Snapshot) {
		log.Debug().Bool("loading", s.Loading).Bool("authenticated", s.User() != nil).Bool("manager", s.IsManager()).Msg("auth state changed")
	})
	state.Start(r.ctx)

	r.entries[sid] = &registryEntry{state: state, lastSeen: r.now()}
	return state
}

// Len reports how many states are live.
func (r *AuthRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes every state idle for longer than the idle TTL.
func (r *AuthRegistry) Sweep() {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []*AuthState
	for sid, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.state)
			delete(r.entries, sid)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		r.logger.Debug().Int("closed", len(stale)).Msg("idle auth states swept")
	}
}

// Start schedules the idle sweep.
func (r *AuthRegistry) Start() error {
	if _, err := r.cron.AddFunc(sweepSchedule, r.Sweep); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the sweep and closes every state.
func (r *AuthRegistry) Stop() {
	<-r.cron.Stop().Done()
	r.cancel()

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.state.Close()
	}
}
