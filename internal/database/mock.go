package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockRoomRepository) ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error) {
	args := m.Called(ctx, filter)
	if rooms, ok := args.Get(0).([]Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRoomRepository) GetRoom(ctx context.Context, id string) (Room, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRoomRepository) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRoomRepository) UpdateRoom(ctx context.Context, id string, params UpdateRoomParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}
func (m *MockRoomRepository) DeleteRoom(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRoomRepository) ListRoomImages(ctx context.Context, roomId string) ([]RoomImage, error) {
	args := m.Called(ctx, roomId)
	if images, ok := args.Get(0).([]RoomImage); ok {
		return images, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRoomRepository) CreateRoomImages(ctx context.Context, roomId string, urls []string) ([]RoomImage, error) {
	args := m.Called(ctx, roomId, urls)
	if images, ok := args.Get(0).([]RoomImage); ok {
		return images, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRoomRepository) DeleteRoomImages(ctx context.Context, roomId string, urls []string) error {
	args := m.Called(ctx, roomId, urls)
	return args.Error(0)
}
func (m *MockRoomRepository) GetProfile(ctx context.Context, userId string) (Profile, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(Profile), args.Error(1)
}
func (m *MockRoomRepository) UpsertProfile(ctx context.Context, profile Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}
