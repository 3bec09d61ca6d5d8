package database

import "time"

type Room struct {
	Id               string
	OwnerId          string
	Title            string
	Location         string
	Rent             float64
	PropertyType     string
	TenantPreference string
	ContactNumber    string
	CreatedAt        time.Time
	// Images is the legacy inline image column some demo rows carry.
	Images     []string
	RoomImages []RoomImage
}

type RoomImage struct {
	Id       string `json:"id"`
	RoomId   string `json:"room_id"`
	ImageUrl string `json:"image_url"`
}

type Profile struct {
	Id       string `json:"id"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
}

type RoomFilter struct {
	Location string
	MinRent  *float64
	MaxRent  *float64
	OwnerId  string
}

type CreateRoomParams struct {
	Id               string  `json:"id"`
	OwnerId          string  `json:"owner_id"`
	Title            string  `json:"title"`
	Location         string  `json:"location"`
	Rent             float64 `json:"rent"`
	PropertyType     string  `json:"property_type"`
	TenantPreference string  `json:"tenant_preference"`
	ContactNumber    string  `json:"contact_number"`
}

// UpdateRoomParams holds the scalar room columns. Images are never written
// through it.
type UpdateRoomParams struct {
	Title            string  `json:"title"`
	Location         string  `json:"location"`
	Rent             float64 `json:"rent"`
	PropertyType     string  `json:"property_type"`
	TenantPreference string  `json:"tenant_preference"`
	ContactNumber    string  `json:"contact_number"`
}
