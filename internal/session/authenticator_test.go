package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/npezzotti/roomrent/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("super-secret-jwt-token-with-at-least-32-characters")

func signToken(t *testing.T, secret []byte, sub string, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   sub,
			ExpiresAt: exp.Unix(),
		},
		Email: sub + "@example.com",
		Role:  "authenticated",
	})

	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestTokenAuthenticator_Local(t *testing.T) {
	valid := signToken(t, testSecret, "user-1", time.Now().Add(time.Hour))
	expired := signToken(t, testSecret, "user-1", time.Now().Add(-time.Hour))
	forged := signToken(t, []byte("another-secret"), "user-1", time.Now().Add(time.Hour))

	tcases := []struct {
		name        string
		tokens      Tokens
		setup       func(*mockAuthClient)
		wantId      string
		wantSession bool
		wantErr     error
	}{
		{
			name:   "valid token",
			tokens: Tokens{AccessToken: valid, RefreshToken: "refresh"},
			setup:  func(*mockAuthClient) {},
			wantId: "user-1",
		},
		{
			name:   "expired token is refreshed",
			tokens: Tokens{AccessToken: expired, RefreshToken: "refresh"},
			setup: func(c *mockAuthClient) {
				c.On("RefreshSession", mock.Anything, "refresh").Return(&supabase.Session{
					AccessToken:  "fresh",
					RefreshToken: "refresh-2",
					User:         &supabase.AuthUser{Id: "user-1", Email: "user-1@example.com"},
				}, nil)
			},
			wantId:      "user-1",
			wantSession: true,
		},
		{
			name:   "refresh rejected",
			tokens: Tokens{AccessToken: expired, RefreshToken: "revoked"},
			setup: func(c *mockAuthClient) {
				c.On("RefreshSession", mock.Anything, "revoked").Return(nil, &supabase.Error{Kind: supabase.KindAuth, Status: 401})
			},
			wantErr: ErrRefreshFailed,
		},
		{
			name:    "forged token is not refreshed",
			tokens:  Tokens{AccessToken: forged, RefreshToken: "refresh"},
			setup:   func(*mockAuthClient) {},
			wantErr: errTokenInvalid,
		},
		{
			name:   "expired token without refresh token",
			tokens: Tokens{AccessToken: expired},
			setup:  func(*mockAuthClient) {},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			client := new(mockAuthClient)
			tc.setup(client)
			a := NewTokenAuthenticator(client, testSecret, testutil.TestLogger(t))

			identity, sess, err := a.Authenticate(context.Background(), tc.tokens)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, identity)
				return
			}

			require.NoError(t, err)
			if tc.wantId == "" {
				assert.Nil(t, identity)
			} else {
				require.NotNil(t, identity)
				assert.Equal(t, tc.wantId, identity.Id)
				assert.Equal(t, "user-1@example.com", identity.Email)
			}
			assert.Equal(t, tc.wantSession, sess != nil)
			client.AssertExpectations(t)
		})
	}
}

func TestTokenAuthenticator_Remote(t *testing.T) {
	t.Run("user lookup", func(t *testing.T) {
		client := new(mockAuthClient)
		client.On("GetUser", mock.Anything, "opaque").Return(&supabase.AuthUser{Id: "user-2", Email: "b@example.com"}, nil)

		a := NewTokenAuthenticator(client, nil, testutil.TestLogger(t))
		identity, sess, err := a.Authenticate(context.Background(), Tokens{AccessToken: "opaque"})
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Equal(t, &Identity{Id: "user-2", Email: "b@example.com"}, identity)
	})

	t.Run("rejected token falls back to refresh", func(t *testing.T) {
		client := new(mockAuthClient)
		client.On("GetUser", mock.Anything, "stale").Return(nil, &supabase.Error{Kind: supabase.KindAuth, Status: 401})
		client.On("RefreshSession", mock.Anything, "refresh").Return(nil, errors.New("connection reset"))

		a := NewTokenAuthenticator(client, nil, testutil.TestLogger(t))
		_, _, err := a.Authenticate(context.Background(), Tokens{AccessToken: "stale", RefreshToken: "refresh"})
		assert.ErrorIs(t, err, ErrRefreshFailed)
		client.AssertExpectations(t)
	})

	t.Run("service unreachable", func(t *testing.T) {
		client := new(mockAuthClient)
		client.On("GetUser", mock.Anything, "opaque").Return(nil, &supabase.Error{Kind: supabase.KindNetwork})

		a := NewTokenAuthenticator(client, nil, testutil.TestLogger(t))
		_, _, err := a.Authenticate(context.Background(), Tokens{AccessToken: "opaque", RefreshToken: "refresh"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrRefreshFailed)
		assert.True(t, supabase.IsKind(err, supabase.KindNetwork))
		client.AssertNotCalled(t, "RefreshSession", mock.Anything, mock.Anything)
	})
}
