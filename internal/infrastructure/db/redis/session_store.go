package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	sessionKeyPrefix  = "inventory:session:"
	// EventsChannel carries every session change across all instances.
	EventsChannel = "inventory:session-events"
)

// SessionStore keeps backend sessions in Redis, keyed by browser session id,
// and announces every write on EventsChannel so each instance can notify its
// local subscribers.
// Key format: inventory:session:<sid>
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger

	mu        sync.RWMutex
	listeners map[string]map[uint64]ports.SessionListener
	nextID    uint64
}

// NewSessionStore creates a SessionStore. ttl <= 0 falls back to seven days.
func NewSessionStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		client:    client,
		ttl:       ttl,
		log:       log,
		listeners: make(map[string]map[uint64]ports.SessionListener),
	}
}

func (s *SessionStore) Load(ctx context.Context, sid string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sid string, kind domain.SessionEventKind, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sid), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return s.publish(ctx, domain.SessionEvent{SessionID: sid, Kind: kind, Session: sess})
}

func (s *SessionStore) Clear(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return s.publish(ctx, domain.SessionEvent{SessionID: sid, Kind: domain.EventSignedOut})
}

func (s *SessionStore) publish(ctx context.Context, ev domain.SessionEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}
	if err := s.client.Publish(ctx, EventsChannel, raw).Err(); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}

type subscription struct {
	store *SessionStore
	sid   string
	id    uint64
	once  sync.Once
}

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		defer sub.store.mu.Unlock()
		set := sub.store.listeners[sub.sid]
		delete(set, sub.id)
		if len(set) == 0 {
			delete(sub.store.listeners, sub.sid)
		}
	})
}

// Subscribe registers fn for changes to sid until the returned handle is
// unsubscribed.
func (s *SessionStore) Subscribe(sid string, fn ports.SessionListener) ports.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	if s.listeners[sid] == nil {
		s.listeners[sid] = make(map[uint64]ports.SessionListener)
	}
	s.listeners[sid][id] = fn
	return &subscription{store: s, sid: sid, id: id}
}

// Deliver calls every local listener registered for ev.SessionID.
func (s *SessionStore) Deliver(_ context.Context, ev domain.SessionEvent) {
	s.mu.RLock()
	fns := make([]ports.SessionListener, 0, len(s.listeners[ev.SessionID]))
	for _, fn := range s.listeners[ev.SessionID] {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Run consumes EventsChannel until ctx is cancelled, passing each decoded
// event to enqueue.
func (s *SessionStore) Run(ctx context.Context, enqueue func(domain.SessionEvent)) error {
	pubsub := s.client.Subscribe(ctx, EventsChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.log.Warn().Err(err).Msg("dropping malformed session event")
				continue
			}
			enqueue(ev)
		}
	}
}

func sessionKey(sid string) string {
	return sessionKeyPrefix + sid
}
