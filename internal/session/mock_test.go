package session

import (
	"context"

	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/stretchr/testify/mock"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, tokens Tokens) (*Identity, *supabase.Session, error) {
	args := m.Called(ctx, tokens)
	id, _ := args.Get(0).(*Identity)
	sess, _ := args.Get(1).(*supabase.Session)
	return id, sess, args.Error(2)
}

func (m *mockAuthenticator) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

type mockAuthClient struct {
	mock.Mock
}

func (m *mockAuthClient) GetUser(ctx context.Context, accessToken string) (*supabase.AuthUser, error) {
	args := m.Called(ctx, accessToken)
	u, _ := args.Get(0).(*supabase.AuthUser)
	return u, args.Error(1)
}

func (m *mockAuthClient) RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error) {
	args := m.Called(ctx, refreshToken)
	s, _ := args.Get(0).(*supabase.Session)
	return s, args.Error(1)
}

func (m *mockAuthClient) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}
