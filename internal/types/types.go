package types

import (
	"time"
)

type Role string

const (
	RoleNone  Role = ""
	RoleOwner Role = "owner"
	RoleUser  Role = "user"
)

type User struct {
	Id    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

type Room struct {
	Id               string     `json:"id"`
	Title            string     `json:"title"`
	Location         string     `json:"location"`
	Rent             float64    `json:"rent"`
	PropertyType     string     `json:"property_type"`
	TenantPreference string     `json:"tenant_preference"`
	ContactNumber    string     `json:"contact_number"`
	Images           []string   `json:"images"`
	OwnerId          string     `json:"owner_id"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// RoomFilter narrows a listing query. A nil price bound is unbounded on that
// side; a zero bound is a real bound.
type RoomFilter struct {
	Location string   `json:"location,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
}

type RoomEvent struct {
	Type      string    `json:"type"`
	RoomId    string    `json:"room_id"`
	Room      *Room     `json:"room,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventRoomCreated = "room_created"
	EventRoomUpdated = "room_updated"
	EventRoomDeleted = "room_deleted"
)
