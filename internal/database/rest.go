package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/roomrent/internal/supabase"
)

const (
	roomsTable      = "rooms"
	roomImagesTable = "room_images"
	profilesTable   = "profiles"
)

// restRoom is a rooms row as PostgREST returns it with embedded images.
type restRoom struct {
	Id               string      `json:"id"`
	OwnerId          string      `json:"owner_id"`
	Title            string      `json:"title"`
	Location         string      `json:"location"`
	Rent             float64     `json:"rent"`
	PropertyType     string      `json:"property_type"`
	TenantPreference string      `json:"tenant_preference"`
	ContactNumber    string      `json:"contact_number"`
	CreatedAt        time.Time   `json:"created_at"`
	Images           []string    `json:"images"`
	RoomImages       []RoomImage `json:"room_images"`
}

func (r restRoom) toRoom() Room {
	images := r.RoomImages
	if images == nil {
		images = make([]RoomImage, 0)
	}
	for i := range images {
		if images[i].RoomId == "" {
			images[i].RoomId = r.Id
		}
	}

	return Room{
		Id:               r.Id,
		OwnerId:          r.OwnerId,
		Title:            r.Title,
		Location:         r.Location,
		Rent:             r.Rent,
		PropertyType:     r.PropertyType,
		TenantPreference: r.TenantPreference,
		ContactNumber:    r.ContactNumber,
		CreatedAt:        r.CreatedAt,
		Images:           r.Images,
		RoomImages:       images,
	}
}

// RestRoomRepository reads and writes the tables through PostgREST. Requests
// run as the user whose access token is on the context, so the project's
// row-level security policies apply.
type RestRoomRepository struct {
	client *supabase.Client
}

func NewRestRoomRepository(client *supabase.Client) *RestRoomRepository {
	return &RestRoomRepository{client: client}
}

func (db *RestRoomRepository) Ping(ctx context.Context) error {
	var rows []restRoom
	return db.client.Select(ctx, supabase.From(roomsTable).Select("id").Limit(1), &rows)
}

func (db *RestRoomRepository) ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error) {
	q := supabase.From(roomsTable).Select("*,room_images(id,image_url)")
	if filter.Location != "" {
		q.ILike("location", "*"+supabase.EscapeLike(filter.Location)+"*")
	}
	if filter.MinRent != nil {
		q.Gte("rent", *filter.MinRent)
	}
	if filter.MaxRent != nil {
		q.Lte("rent", *filter.MaxRent)
	}
	if filter.OwnerId != "" {
		q.Eq("owner_id", filter.OwnerId)
	}
	q.Order("created_at", false)

	var rows []restRoom
	if err := db.client.Select(ctx, q, &rows); err != nil {
		return nil, err
	}

	rooms := make([]Room, 0, len(rows))
	for _, r := range rows {
		rooms = append(rooms, r.toRoom())
	}

	return rooms, nil
}

func (db *RestRoomRepository) GetRoom(ctx context.Context, id string) (Room, error) {
	if !isRoomId(id) {
		return Room{}, sql.ErrNoRows
	}

	q := supabase.From(roomsTable).
		Select("*,room_images(id,image_url)").
		Eq("id", id).
		Limit(1)

	var rows []restRoom
	if err := db.client.Select(ctx, q, &rows); err != nil {
		return Room{}, err
	}

	if len(rows) == 0 {
		return Room{}, sql.ErrNoRows
	}

	return rows[0].toRoom(), nil
}

func (db *RestRoomRepository) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error) {
	if params.Id == "" {
		params.Id = uuid.NewString()
	}

	var rows []restRoom
	if err := db.client.Insert(ctx, roomsTable, params, &rows); err != nil {
		return Room{}, err
	}

	if len(rows) == 0 {
		// representation hidden by a select policy; the insert itself succeeded
		return Room{
			Id:               params.Id,
			OwnerId:          params.OwnerId,
			Title:            params.Title,
			Location:         params.Location,
			Rent:             params.Rent,
			PropertyType:     params.PropertyType,
			TenantPreference: params.TenantPreference,
			ContactNumber:    params.ContactNumber,
			RoomImages:       make([]RoomImage, 0),
		}, nil
	}

	return rows[0].toRoom(), nil
}

func (db *RestRoomRepository) UpdateRoom(ctx context.Context, id string, params UpdateRoomParams) error {
	return db.client.Update(ctx, supabase.From(roomsTable).Eq("id", id), params)
}

func (db *RestRoomRepository) DeleteRoom(ctx context.Context, id string) error {
	return db.client.Delete(ctx, supabase.From(roomsTable).Eq("id", id))
}

func (db *RestRoomRepository) ListRoomImages(ctx context.Context, roomId string) ([]RoomImage, error) {
	q := supabase.From(roomImagesTable).
		Select("id,room_id,image_url").
		Eq("room_id", roomId)

	images := make([]RoomImage, 0)
	if err := db.client.Select(ctx, q, &images); err != nil {
		return nil, err
	}

	return images, nil
}

func (db *RestRoomRepository) CreateRoomImages(ctx context.Context, roomId string, urls []string) ([]RoomImage, error) {
	images := make([]RoomImage, 0, len(urls))
	for _, u := range urls {
		images = append(images, RoomImage{Id: uuid.NewString(), RoomId: roomId, ImageUrl: u})
	}

	if err := db.client.Insert(ctx, roomImagesTable, images, nil); err != nil {
		return nil, err
	}

	return images, nil
}

func (db *RestRoomRepository) DeleteRoomImages(ctx context.Context, roomId string, urls []string) error {
	q := supabase.From(roomImagesTable).
		Eq("room_id", roomId).
		In("image_url", urls)
	return db.client.Delete(ctx, q)
}

func (db *RestRoomRepository) GetProfile(ctx context.Context, userId string) (Profile, error) {
	q := supabase.From(profilesTable).
		Select("id,role,full_name").
		Eq("id", userId).
		Limit(1)

	var rows []struct {
		Id       string  `json:"id"`
		Role     *string `json:"role"`
		FullName *string `json:"full_name"`
	}
	if err := db.client.Select(ctx, q, &rows); err != nil {
		return Profile{}, err
	}

	if len(rows) == 0 {
		return Profile{}, sql.ErrNoRows
	}

	p := Profile{Id: rows[0].Id}
	if rows[0].Role != nil {
		p.Role = *rows[0].Role
	}
	if rows[0].FullName != nil {
		p.FullName = *rows[0].FullName
	}

	return p, nil
}

func (db *RestRoomRepository) UpsertProfile(ctx context.Context, profile Profile) error {
	return db.client.Upsert(ctx, profilesTable, profile, "id")
}
