package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/npezzotti/roomrent/internal/config"
	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/diagnostics"
	"github.com/npezzotti/roomrent/internal/listing"
	"github.com/npezzotti/roomrent/internal/session"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/npezzotti/roomrent/internal/testutil"
	"github.com/npezzotti/roomrent/internal/types"
	"github.com/stretchr/testify/mock"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error) {
	args := m.Called(ctx, email, password)
	sess, _ := args.Get(0).(*supabase.Session)
	return sess, args.Error(1)
}

func (m *mockAuth) SignUp(ctx context.Context, email, password string) (*supabase.AuthUser, *supabase.Session, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*supabase.AuthUser)
	sess, _ := args.Get(1).(*supabase.Session)
	return user, sess, args.Error(2)
}

func (m *mockAuth) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Resolve(ctx context.Context, tokens session.Tokens) session.State {
	args := m.Called(ctx, tokens)
	return args.Get(0).(session.State)
}

type mockListings struct {
	mock.Mock
}

func (m *mockListings) ListRooms(ctx context.Context, filter types.RoomFilter) []types.Room {
	args := m.Called(ctx, filter)
	return args.Get(0).([]types.Room)
}

func (m *mockListings) GetRoom(ctx context.Context, id string) (types.Room, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *mockListings) ListOwnerRooms(ctx context.Context, ownerId string) ([]types.Room, error) {
	args := m.Called(ctx, ownerId)
	rooms, _ := args.Get(0).([]types.Room)
	return rooms, args.Error(1)
}

func (m *mockListings) Create(ctx context.Context, ownerId string, draft listing.Draft) (*listing.CreateResult, error) {
	args := m.Called(ctx, ownerId, draft)
	res, _ := args.Get(0).(*listing.CreateResult)
	return res, args.Error(1)
}

func (m *mockListings) Edit(ctx context.Context, req listing.EditRequest) (*listing.EditResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*listing.EditResult)
	return res, args.Error(1)
}

func (m *mockListings) Delete(ctx context.Context, roomId, ownerId string) error {
	args := m.Called(ctx, roomId, ownerId)
	return args.Error(0)
}

func (m *mockListings) PopulateImages(ctx context.Context, ownerId string) (int, error) {
	args := m.Called(ctx, ownerId)
	return args.Int(0), args.Error(1)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) UpsertProfile(ctx context.Context, profile database.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

type mockDiagnostics struct {
	mock.Mock
}

func (m *mockDiagnostics) Run(ctx context.Context, user *types.User) diagnostics.Report {
	args := m.Called(ctx, user)
	return args.Get(0).(diagnostics.Report)
}

var (
	testOwner = &types.User{Id: "owner-1", Email: "asha@example.com", Role: types.RoleOwner}
	testUser  = &types.User{Id: "user-1", Email: "priya@example.com", Role: types.RoleUser}
)

func authenticated(user *types.User) session.State {
	return session.State{Status: session.Authenticated, User: user}
}

func unauthenticated() session.State {
	return session.State{Status: session.Unauthenticated}
}

func newTestApp(t *testing.T, svc Services) *App {
	t.Helper()
	return NewApp(http.NewServeMux(), testutil.TestLogger(t), svc, &config.Config{
		AllowedOrigins: []string{"http://localhost:3000"},
	})
}
