package database

import (
	"context"

	"github.com/google/uuid"
)

// RoomRepository is the table store behind the listing service. Lookups of a
// single row that find nothing return sql.ErrNoRows, as do lookups by an id
// that is not a UUID.
type RoomRepository interface {
	Ping(ctx context.Context) error
	ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error)
	UpdateRoom(ctx context.Context, id string, params UpdateRoomParams) error
	DeleteRoom(ctx context.Context, id string) error
	ListRoomImages(ctx context.Context, roomId string) ([]RoomImage, error)
	CreateRoomImages(ctx context.Context, roomId string, urls []string) ([]RoomImage, error)
	DeleteRoomImages(ctx context.Context, roomId string, urls []string) error
	GetProfile(ctx context.Context, userId string) (Profile, error)
	UpsertProfile(ctx context.Context, profile Profile) error
}

// isRoomId reports whether id can name a row in the rooms table.
func isRoomId(id string) bool {
	return uuid.Validate(id) == nil
}
