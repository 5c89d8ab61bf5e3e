package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

const waitFor = time.Second

func startState(t *testing.T, client *stubAuthClient, profiles *stubProfiles) *AuthState {
	t.Helper()
	state := NewAuthState(client, profiles, "", zerolog.Nop())
	state.Start(context.Background())
	t.Cleanup(state.Close)
	return state
}

func notLoading(state *AuthState) func() bool {
	return func() bool { return !state.Snapshot().Loading }
}

func TestAuthState_StartsLoading(t *testing.T) {
	state := NewAuthState(&stubAuthClient{}, newStubProfiles(), "", zerolog.Nop())
	snap := state.Snapshot()
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.User())
	assert.False(t, snap.IsManager())
}

func TestAuthState_Start_NoSession(t *testing.T) {
	client := &stubAuthClient{}
	profiles := newStubProfiles()
	state := startState(t, client, profiles)

	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)
	snap := state.Snapshot()
	assert.Nil(t, snap.User())
	assert.Nil(t, snap.Profile)
	assert.Zero(t, profiles.calls)
}

func TestAuthState_Start_SessionFetchError(t *testing.T) {
	client := &stubAuthClient{getErr: errors.New("redis down")}
	state := startState(t, client, newStubProfiles())

	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)
	assert.Nil(t, state.Snapshot().User())
}

func TestAuthState_Start_WithSessionLoadsProfile(t *testing.T) {
	client := &stubAuthClient{session: sessionFor("u1")}
	profiles := newStubProfiles(domain.Profile{ID: "u1", Username: "alice", Role: domain.RoleManager})
	state := startState(t, client, profiles)

	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)
	snap := state.Snapshot()
	require.NotNil(t, snap.User())
	assert.Equal(t, "u1", snap.User().ID)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "alice", snap.Profile.Username)
	assert.True(t, state.IsManager())
}

func TestAuthState_ProfileFailureStillClearsLoading(t *testing.T) {
	client := &stubAuthClient{session: sessionFor("u1")}
	profiles := newStubProfiles()
	profiles.err = errors.New("boom")
	state := startState(t, client, profiles)

	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)
	snap := state.Snapshot()
	assert.NotNil(t, snap.User())
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsManager())
}

func TestAuthState_MissingProfileRow(t *testing.T) {
	client := &stubAuthClient{session: sessionFor("u1")}
	state := startState(t, client, newStubProfiles())

	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)
	assert.Nil(t, state.Snapshot().Profile)
}

func TestAuthState_SignIn(t *testing.T) {
	client := &stubAuthClient{
		signInFn: func(email, password string) (*domain.Session, error) {
			return sessionFor("u2"), nil
		},
	}
	profiles := newStubProfiles(domain.Profile{ID: "u2", Username: "bob", Role: domain.RoleStoreKeeper})
	state := startState(t, client, profiles)
	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

	require.NoError(t, state.SignIn(context.Background(), "bob", "secret"))

	assert.Equal(t, "bob@miaoda.com", client.email())
	snap := state.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Equal(t, domain.RoleStoreKeeper, snap.Profile.Role)
	assert.False(t, snap.IsManager())
}

func TestAuthState_SignIn_CustomDomain(t *testing.T) {
	client := &stubAuthClient{
		signInFn: func(email, password string) (*domain.Session, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	state := NewAuthState(client, newStubProfiles(), "corp.example", zerolog.Nop())

	err := state.SignIn(context.Background(), "carol", "nope")

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, "carol@corp.example", client.email())
}

func TestAuthState_SignUp(t *testing.T) {
	client := &stubAuthClient{
		signUpFn: func(email, password string) (*domain.Session, error) {
			return sessionFor("u3"), nil
		},
	}
	profiles := newStubProfiles(domain.Profile{ID: "u3", Username: "bob", Role: domain.RoleManager})
	state := startState(t, client, profiles)

	signedIn, err := state.SignUp(context.Background(), "bob", "secret")

	require.NoError(t, err)
	assert.True(t, signedIn)
	assert.Equal(t, "bob@miaoda.com", client.email())
	assert.True(t, state.IsManager())
}

func TestAuthState_SignUp_Duplicate(t *testing.T) {
	client := &stubAuthClient{
		signUpFn: func(email, password string) (*domain.Session, error) {
			return nil, domain.ErrUserExists
		},
	}
	state := startState(t, client, newStubProfiles())

	_, err := state.SignUp(context.Background(), "bob", "secret")

	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestAuthState_SignUp_PendingConfirmation(t *testing.T) {
	client := &stubAuthClient{
		signUpFn: func(email, password string) (*domain.Session, error) {
			return &domain.Session{User: domain.User{ID: "u4"}}, nil
		},
	}
	state := startState(t, client, newStubProfiles())
	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

	signedIn, err := state.SignUp(context.Background(), "dana", "secret")

	require.NoError(t, err)
	assert.False(t, signedIn)
	assert.Nil(t, state.Snapshot().User())
}

func TestAuthState_SignOut(t *testing.T) {
	client := &stubAuthClient{session: sessionFor("u1")}
	profiles := newStubProfiles(domain.Profile{ID: "u1", Role: domain.RoleManager})
	state := startState(t, client, profiles)
	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

	require.NoError(t, state.SignOut(context.Background()))

	snap := state.Snapshot()
	assert.Nil(t, snap.User())
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.Loading)
}

func TestAuthState_SignOut_BackendErrorKeepsState(t *testing.T) {
	client := &stubAuthClient{session: sessionFor("u1"), signOutErr: errors.New("network")}
	state := startState(t, client, newStubProfiles(domain.Profile{ID: "u1"}))
	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

	assert.Error(t, state.SignOut(context.Background()))
	assert.NotNil(t, state.Snapshot().User())
}

func TestAuthState_NotificationReplacesUser(t *testing.T) {
	client := &stubAuthClient{}
	profiles := newStubProfiles(domain.Profile{ID: "u5", Role: domain.RoleManager})
	state := startState(t, client, profiles)
	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

	client.emit(domain.SessionEvent{Kind: domain.EventSignedIn, Session: sessionFor("u5")})

	require.Eventually(t, state.IsManager, waitFor, 5*time.Millisecond)

	client.emit(domain.SessionEvent{Kind: domain.EventSignedOut})
	snap := state.Snapshot()
	assert.Nil(t, snap.User())
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.Loading)
}

func TestAuthState_StaleProfileFetchIsDropped(t *testing.T) {
	client := &stubAuthClient{}
	profiles := newStubProfiles(
		domain.Profile{ID: "old", Role: domain.RoleManager},
		domain.Profile{ID: "new", Role: domain.RoleStoreKeeper},
	)
	gate := make(chan struct{})
	profiles.gates["old"] = gate
	state := startState(t, client, profiles)
	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

	client.emit(domain.SessionEvent{Kind: domain.EventSignedIn, Session: sessionFor("old")})
	client.emit(domain.SessionEvent{Kind: domain.EventSignedIn, Session: sessionFor("new")})

	require.Eventually(t, func() bool {
		p := state.Snapshot().Profile
		return p != nil && p.ID == "new"
	}, waitFor, 5*time.Millisecond)

	close(gate)
	time.Sleep(20 * time.Millisecond)

	snap := state.Snapshot()
	assert.Equal(t, "new", snap.Profile.ID)
	assert.False(t, snap.IsManager())
}

func TestAuthState_NotificationBeforeInitialFetchWins(t *testing.T) {
	client := &stubAuthClient{session: sessionFor("stale")}
	state := NewAuthState(client, newStubProfiles(), "", zerolog.Nop())

	// Register the listener without running the initial fetch yet.
	state.mu.Lock()
	state.ctx, state.cancel = context.WithCancel(context.Background())
	state.sub = client.OnSessionChange(state.handleSessionChange)
	version := state.version
	state.mu.Unlock()
	t.Cleanup(state.Close)

	client.emit(domain.SessionEvent{Kind: domain.EventSignedOut})
	state.initialize(version)

	assert.Nil(t, state.Snapshot().User())
}

func TestAuthState_WatchAndClose(t *testing.T) {
	client := &stubAuthClient{}
	state := NewAuthState(client, newStubProfiles(), "", zerolog.Nop())

	seen := make(chan Snapshot, 8)
	stop := state.Watch(func(s Snapshot) { seen <- s })
	state.Start(context.Background())

	select {
	case s := <-seen:
		assert.False(t, s.Loading)
	case <-time.After(waitFor):
		t.Fatal("watcher not notified")
	}
	stop()

	state.Close()
	assert.True(t, client.sub.done())
	state.Close()
}

func TestAuthState_CurrentSession(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		state := startState(t, &stubAuthClient{}, newStubProfiles())
		require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

		_, err := state.CurrentSession(context.Background())
		assert.ErrorIs(t, err, domain.ErrNoSession)
	})

	t.Run("fresh session returned as is", func(t *testing.T) {
		sess := sessionFor("u1")
		state := startState(t, &stubAuthClient{session: sess}, newStubProfiles(domain.Profile{ID: "u1"}))
		require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

		got, err := state.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Same(t, sess, got)
	})

	t.Run("expired session refreshed and profile kept", func(t *testing.T) {
		expired := sessionFor("u1")
		expired.ExpiresAt = time.Now().Add(-time.Minute)
		client := &stubAuthClient{session: expired}
		state := startState(t, client, newStubProfiles(domain.Profile{ID: "u1", Role: domain.RoleManager}))
		require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

		fresh := sessionFor("u1")
		fresh.AccessToken = "tok-refreshed"
		client.mu.Lock()
		client.session = fresh
		client.mu.Unlock()

		got, err := state.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-refreshed", got.AccessToken)
		assert.Same(t, fresh, state.Snapshot().Session)
		assert.True(t, state.IsManager())
	})

	t.Run("refresh gone", func(t *testing.T) {
		expired := sessionFor("u1")
		expired.ExpiresAt = time.Now().Add(-time.Minute)
		client := &stubAuthClient{session: expired}
		state := startState(t, client, newStubProfiles(domain.Profile{ID: "u1"}))
		require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

		client.mu.Lock()
		client.session = nil
		client.mu.Unlock()

		_, err := state.CurrentSession(context.Background())
		assert.ErrorIs(t, err, domain.ErrNoSession)

		snap := state.Snapshot()
		assert.Nil(t, snap.User())
		assert.Nil(t, snap.Profile)
		assert.False(t, snap.Loading)
		assert.Equal(t, GuardRedirectLogin, EvaluateGuard(snap, false).Outcome)
	})

	t.Run("transient refresh failure keeps user", func(t *testing.T) {
		expired := sessionFor("u1")
		expired.ExpiresAt = time.Now().Add(-time.Minute)
		client := &stubAuthClient{session: expired}
		state := startState(t, client, newStubProfiles(domain.Profile{ID: "u1"}))
		require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

		client.mu.Lock()
		client.getErr = errors.New("timeout")
		client.mu.Unlock()

		_, err := state.CurrentSession(context.Background())
		assert.EqualError(t, err, "timeout")
		assert.NotNil(t, state.Snapshot().User())
	})
}

// An expired session whose refresh token the backend rejects ends up signed
// out, and a later sign-out still succeeds.
func TestAuthState_ExpiredSessionWithRejectedRefresh(t *testing.T) {
	store := newStubStore()
	creds := &stubCreds{session: sessionFor("u1"), refreshErr: domain.ErrInvalidCredentials}
	client := NewAuthClient("sid-1", creds, store, nil, zerolog.Nop())
	state := NewAuthState(client, newStubProfiles(domain.Profile{ID: "u1"}), "", zerolog.Nop())
	state.Start(context.Background())
	t.Cleanup(state.Close)
	require.Eventually(t, notLoading(state), waitFor, 5*time.Millisecond)

	require.NoError(t, state.SignIn(context.Background(), "u1", "pw"))
	store.sessions["sid-1"].RefreshToken = "r1"
	store.sessions["sid-1"].ExpiresAt = time.Now().Add(-time.Second)

	_, err := state.CurrentSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
	assert.Equal(t, GuardRedirectLogin, EvaluateGuard(state.Snapshot(), false).Outcome)
	assert.Contains(t, store.cleared, "sid-1")

	require.NoError(t, state.SignOut(context.Background()))
	assert.Nil(t, state.Snapshot().User())
}

func TestAuthState_SignedOutState(t *testing.T) {
	state := NewSignedOutState()

	snap := state.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.User())
	assert.Equal(t, GuardRedirectLogin, EvaluateGuard(snap, false).Outcome)

	assert.ErrorIs(t, state.SignIn(context.Background(), "alice", "pw"), domain.ErrNoSession)
	assert.NoError(t, state.SignOut(context.Background()))
	_, err := state.CurrentSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
	state.Close()
}

func TestAuthState_WaitLoaded(t *testing.T) {
	t.Run("returns once loading ends", func(t *testing.T) {
		profiles := newStubProfiles(domain.Profile{ID: "u1"})
		gate := make(chan struct{})
		profiles.gates["u1"] = gate
		state := startState(t, &stubAuthClient{session: sessionFor("u1")}, profiles)

		go func() {
			time.Sleep(20 * time.Millisecond)
			close(gate)
		}()
		assert.True(t, state.WaitLoaded(context.Background()))
		assert.False(t, state.Snapshot().Loading)
	})

	t.Run("gives up with the context", func(t *testing.T) {
		state := NewAuthState(&stubAuthClient{}, newStubProfiles(), "", zerolog.Nop())
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		assert.False(t, state.WaitLoaded(ctx))
	})
}
