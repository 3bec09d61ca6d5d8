package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/npezzotti/roomrent/internal/testutil"
	"github.com/npezzotti/roomrent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestResolver(t *testing.T) (*Resolver, *mockAuthenticator, *database.MockRoomRepository, *fakeClock) {
	auth := new(mockAuthenticator)
	repo := new(database.MockRoomRepository)
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	r := NewResolver(auth, repo, testutil.TestLogger(t), WithClock(clock.now))
	return r, auth, repo, clock
}

func TestResolve(t *testing.T) {
	tokens := Tokens{AccessToken: "access", RefreshToken: "refresh"}

	tcases := []struct {
		name       string
		tokens     Tokens
		setup      func(*mockAuthenticator, *database.MockRoomRepository)
		wantStatus Status
		wantUser   *types.User
	}{
		{
			name:       "no tokens",
			tokens:     Tokens{},
			setup:      func(*mockAuthenticator, *database.MockRoomRepository) {},
			wantStatus: Unauthenticated,
		},
		{
			name:   "owner session",
			tokens: tokens,
			setup: func(a *mockAuthenticator, repo *database.MockRoomRepository) {
				a.On("Authenticate", mock.Anything, tokens).Return(&Identity{Id: "user-1", Email: "asha@example.com"}, nil, nil)
				repo.On("GetProfile", mock.Anything, "user-1").Return(database.Profile{Id: "user-1", Role: "owner"}, nil)
			},
			wantStatus: Authenticated,
			wantUser:   &types.User{Id: "user-1", Email: "asha@example.com", Role: types.RoleOwner},
		},
		{
			name:   "profile lookup failure leaves role absent",
			tokens: tokens,
			setup: func(a *mockAuthenticator, repo *database.MockRoomRepository) {
				a.On("Authenticate", mock.Anything, tokens).Return(&Identity{Id: "user-1"}, nil, nil)
				repo.On("GetProfile", mock.Anything, "user-1").Return(database.Profile{}, errors.New("timeout"))
			},
			wantStatus: Authenticated,
			wantUser:   &types.User{Id: "user-1"},
		},
		{
			name:   "no session behind tokens",
			tokens: tokens,
			setup: func(a *mockAuthenticator, repo *database.MockRoomRepository) {
				a.On("Authenticate", mock.Anything, tokens).Return(nil, nil, nil)
			},
			wantStatus: Unauthenticated,
		},
		{
			name:   "refresh failure signs out",
			tokens: tokens,
			setup: func(a *mockAuthenticator, repo *database.MockRoomRepository) {
				a.On("Authenticate", mock.Anything, tokens).Return(nil, nil, ErrRefreshFailed)
				a.On("SignOut", mock.Anything, "access").Return(nil).Once()
			},
			wantStatus: Unauthenticated,
		},
		{
			name:   "invalid token signs out best effort",
			tokens: tokens,
			setup: func(a *mockAuthenticator, repo *database.MockRoomRepository) {
				a.On("Authenticate", mock.Anything, tokens).Return(nil, nil, errTokenInvalid)
				a.On("SignOut", mock.Anything, "access").Return(errors.New("unreachable")).Once()
			},
			wantStatus: Unauthenticated,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			r, auth, repo, _ := newTestResolver(t)
			tc.setup(auth, repo)

			state := r.Resolve(context.Background(), tc.tokens)
			assert.Equal(t, tc.wantStatus, state.Status)
			assert.Equal(t, tc.wantUser, state.User)

			auth.AssertExpectations(t)
			repo.AssertExpectations(t)
		})
	}
}

func TestResolve_RefreshedSession(t *testing.T) {
	r, auth, repo, _ := newTestResolver(t)
	tokens := Tokens{AccessToken: "expired", RefreshToken: "refresh"}
	refreshed := &supabase.Session{AccessToken: "fresh", RefreshToken: "refresh-2"}

	auth.On("Authenticate", mock.Anything, tokens).Return(&Identity{Id: "user-1"}, refreshed, nil)
	repo.On("GetProfile", mock.MatchedBy(func(ctx context.Context) bool {
		token, ok := supabase.AccessToken(ctx)
		return ok && token == "fresh"
	}), "user-1").Return(database.Profile{Role: "user"}, nil)

	state := r.Resolve(context.Background(), tokens)
	require.Equal(t, Authenticated, state.Status)
	assert.Equal(t, types.RoleUser, state.User.Role)
	assert.Same(t, refreshed, state.Refreshed)
	repo.AssertExpectations(t)
}

func TestResolve_RoleLookupThrottled(t *testing.T) {
	r, auth, repo, clock := newTestResolver(t)
	tokens := Tokens{AccessToken: "access"}

	auth.On("Authenticate", mock.Anything, tokens).Return(&Identity{Id: "user-1"}, nil, nil)
	repo.On("GetProfile", mock.Anything, "user-1").Return(database.Profile{Role: "owner"}, nil).Once()

	first := r.Resolve(context.Background(), tokens)
	clock.advance(2 * time.Second)
	second := r.Resolve(context.Background(), tokens)

	assert.Equal(t, types.RoleOwner, first.User.Role)
	assert.Equal(t, types.RoleOwner, second.User.Role, "expected cached role inside the window")
	repo.AssertNumberOfCalls(t, "GetProfile", 1)

	repo.On("GetProfile", mock.Anything, "user-1").Return(database.Profile{Role: "user"}, nil).Once()
	clock.advance(RoleLookupInterval)
	third := r.Resolve(context.Background(), tokens)

	assert.Equal(t, types.RoleUser, third.User.Role)
	repo.AssertNumberOfCalls(t, "GetProfile", 2)
}

func TestHandleEvent(t *testing.T) {
	t.Run("cleared", func(t *testing.T) {
		r, auth, repo, _ := newTestResolver(t)
		state := r.HandleEvent(context.Background(), Event{Type: Cleared})
		assert.Equal(t, Unauthenticated, state.Status)
		assert.Nil(t, state.User)
		auth.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("refresh failed without token", func(t *testing.T) {
		r, auth, _, _ := newTestResolver(t)
		state := r.HandleEvent(context.Background(), Event{Type: RefreshFailed})
		assert.Equal(t, Unauthenticated, state.Status)
		auth.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
	})

	t.Run("established", func(t *testing.T) {
		r, _, repo, _ := newTestResolver(t)
		repo.On("GetProfile", mock.Anything, "user-9").Return(database.Profile{Role: "owner"}, nil)

		state := r.HandleEvent(context.Background(), Event{Type: Established, Identity: &Identity{Id: "user-9"}})
		require.Equal(t, Authenticated, state.Status)
		assert.Equal(t, types.RoleOwner, state.User.Role)
	})
}

func TestResolve_ConcurrentRoleLookup(t *testing.T) {
	r, auth, repo, _ := newTestResolver(t)
	tokens := Tokens{AccessToken: "access"}

	entered := make(chan struct{})
	release := make(chan struct{})
	auth.On("Authenticate", mock.Anything, tokens).Return(&Identity{Id: "user-1"}, nil, nil)
	repo.On("GetProfile", mock.Anything, "user-1").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(database.Profile{Role: "owner"}, nil).Once()

	states := make(chan State, 2)
	go func() { states <- r.Resolve(context.Background(), tokens) }()
	<-entered
	go func() { states <- r.Resolve(context.Background(), tokens) }()
	close(release)

	for range 2 {
		select {
		case state := <-states:
			require.Equal(t, Authenticated, state.Status)
			assert.Equal(t, types.RoleOwner, state.User.Role)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for session state")
		}
	}
	repo.AssertNumberOfCalls(t, "GetProfile", 1)
}

func TestResolve_RoleWaitCanceled(t *testing.T) {
	r, _, _, _ := newTestResolver(t)

	_, _, fetch := r.roles.begin("user-1")
	require.True(t, fetch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, types.RoleNone, r.role(ctx, "user-1", ""))

	r.roles.finish("user-1", types.RoleOwner)
	assert.Equal(t, types.RoleOwner, r.role(context.Background(), "user-1", ""))
}

func TestRoleCache_Bounded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := newRoleCache(RoleLookupInterval, 2)
	c.now = clock.now

	for _, id := range []string{"a", "b"} {
		_, _, fetch := c.begin(id)
		require.True(t, fetch)
		c.finish(id, types.RoleUser)
		clock.advance(time.Millisecond)
	}

	_, _, fetch := c.begin("c")
	require.True(t, fetch)
	c.finish("c", types.RoleUser)
	assert.Equal(t, 2, c.size())

	_, _, fetch = c.begin("a")
	assert.True(t, fetch, "expected oldest entry to have been evicted")
	c.finish("a", types.RoleUser)

	clock.advance(RoleLookupInterval)
	_, _, fetch = c.begin("d")
	assert.True(t, fetch)
	assert.LessOrEqual(t, c.size(), 2)
}

func TestRoleCache_PendingLookup(t *testing.T) {
	c := newRoleCache(RoleLookupInterval, 1)

	_, _, fetch := c.begin("a")
	require.True(t, fetch)

	role, pending, fetch := c.begin("a")
	assert.False(t, fetch)
	assert.Equal(t, types.RoleNone, role)
	require.NotNil(t, pending)

	// a full cache keeps the in-flight entry
	_, _, fetch = c.begin("b")
	assert.True(t, fetch)

	c.finish("a", types.RoleOwner)
	select {
	case <-pending:
	default:
		t.Fatal("expected pending lookup to be released")
	}
	assert.Equal(t, types.RoleOwner, c.get("a"))
}

func TestStatus_MarshalText(t *testing.T) {
	for status, want := range map[Status]string{
		Loading:         "loading",
		Unauthenticated: "unauthenticated",
		Authenticated:   "authenticated",
	} {
		b, err := status.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}
