package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const roomColumns = "r.id, r.owner_id, r.title, r.location, r.rent, r.property_type, " +
	"r.tenant_preference, r.contact_number, r.created_at"

type PgRoomRepository struct {
	conn *sql.DB
}

func NewPgRoomRepository(dsn string) (*PgRoomRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgRoomRepository{conn: db}, nil
}

// NewPgRoomRepositoryFromDB wraps an already opened handle.
func NewPgRoomRepositoryFromDB(db *sql.DB) *PgRoomRepository {
	return &PgRoomRepository{conn: db}
}

func (db *PgRoomRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *PgRoomRepository) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func buildListRoomsQuery(filter RoomFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	if filter.Location != "" {
		args = append(args, "%"+escapeLike(filter.Location)+"%")
		where = append(where, fmt.Sprintf("r.location ILIKE $%d", len(args)))
	}
	if filter.MinRent != nil {
		args = append(args, *filter.MinRent)
		where = append(where, fmt.Sprintf("r.rent >= $%d", len(args)))
	}
	if filter.MaxRent != nil {
		args = append(args, *filter.MaxRent)
		where = append(where, fmt.Sprintf("r.rent <= $%d", len(args)))
	}
	if filter.OwnerId != "" {
		args = append(args, filter.OwnerId)
		where = append(where, fmt.Sprintf("r.owner_id = $%d", len(args)))
	}

	query := "SELECT " + roomColumns + ", ri.id, ri.image_url " +
		"FROM rooms r LEFT JOIN room_images ri ON ri.room_id = r.id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.created_at DESC, r.id"

	return query, args
}

// scanRoomsWithImages folds the joined rows into rooms, keeping the order in
// which each room first appears.
func scanRoomsWithImages(rows *sql.Rows) ([]Room, error) {
	rooms := make([]Room, 0)
	index := make(map[string]int)

	for rows.Next() {
		var (
			room     Room
			imageId  sql.NullString
			imageUrl sql.NullString
		)

		err := rows.Scan(
			&room.Id,
			&room.OwnerId,
			&room.Title,
			&room.Location,
			&room.Rent,
			&room.PropertyType,
			&room.TenantPreference,
			&room.ContactNumber,
			&room.CreatedAt,
			&imageId,
			&imageUrl,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		i, ok := index[room.Id]
		if !ok {
			room.RoomImages = make([]RoomImage, 0)
			rooms = append(rooms, room)
			i = len(rooms) - 1
			index[room.Id] = i
		}

		if imageId.Valid && imageUrl.Valid {
			rooms[i].RoomImages = append(rooms[i].RoomImages, RoomImage{
				Id:       imageId.String,
				RoomId:   room.Id,
				ImageUrl: imageUrl.String,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rooms, nil
}

func (db *PgRoomRepository) ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error) {
	query, args := buildListRoomsQuery(filter)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	return scanRoomsWithImages(rows)
}

func (db *PgRoomRepository) GetRoom(ctx context.Context, id string) (Room, error) {
	if !isRoomId(id) {
		return Room{}, sql.ErrNoRows
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+roomColumns+", ri.id, ri.image_url "+
			"FROM rooms r LEFT JOIN room_images ri ON ri.room_id = r.id "+
			"WHERE r.id = $1",
		id,
	)
	if err != nil {
		return Room{}, fmt.Errorf("get room: %w", err)
	}
	defer rows.Close()

	rooms, err := scanRoomsWithImages(rows)
	if err != nil {
		return Room{}, err
	}

	if len(rooms) == 0 {
		return Room{}, sql.ErrNoRows
	}

	return rooms[0], nil
}

func (db *PgRoomRepository) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error) {
	if params.Id == "" {
		params.Id = uuid.NewString()
	}

	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO rooms (id, owner_id, title, location, rent, property_type, tenant_preference, contact_number) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) "+
			"RETURNING id, owner_id, title, location, rent, property_type, tenant_preference, contact_number, created_at",
		params.Id,
		params.OwnerId,
		params.Title,
		params.Location,
		params.Rent,
		params.PropertyType,
		params.TenantPreference,
		params.ContactNumber,
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.OwnerId,
		&room.Title,
		&room.Location,
		&room.Rent,
		&room.PropertyType,
		&room.TenantPreference,
		&room.ContactNumber,
		&room.CreatedAt,
	)

	return room, err
}

func (db *PgRoomRepository) UpdateRoom(ctx context.Context, id string, params UpdateRoomParams) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE rooms SET title = $2, location = $3, rent = $4, property_type = $5, "+
			"tenant_preference = $6, contact_number = $7 WHERE id = $1",
		id,
		params.Title,
		params.Location,
		params.Rent,
		params.PropertyType,
		params.TenantPreference,
		params.ContactNumber,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgRoomRepository) DeleteRoom(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", id)
	return err
}

func (db *PgRoomRepository) ListRoomImages(ctx context.Context, roomId string) ([]RoomImage, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, room_id, image_url FROM room_images WHERE room_id = $1",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]RoomImage, 0)
	for rows.Next() {
		var img RoomImage
		if err := rows.Scan(&img.Id, &img.RoomId, &img.ImageUrl); err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	return images, rows.Err()
}

func (db *PgRoomRepository) CreateRoomImages(ctx context.Context, roomId string, urls []string) ([]RoomImage, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	images := make([]RoomImage, 0, len(urls))
	for _, u := range urls {
		img := RoomImage{Id: uuid.NewString(), RoomId: roomId, ImageUrl: u}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO room_images (id, room_id, image_url) VALUES ($1, $2, $3)",
			img.Id,
			img.RoomId,
			img.ImageUrl,
		)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return images, nil
}

func (db *PgRoomRepository) DeleteRoomImages(ctx context.Context, roomId string, urls []string) error {
	_, err := db.conn.ExecContext(ctx,
		"DELETE FROM room_images WHERE room_id = $1 AND image_url = ANY($2)",
		roomId,
		pq.Array(urls),
	)
	return err
}

func (db *PgRoomRepository) GetProfile(ctx context.Context, userId string) (Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, COALESCE(role, ''), COALESCE(full_name, '') FROM profiles WHERE id = $1 LIMIT 1",
		userId,
	)

	var p Profile
	err := row.Scan(&p.Id, &p.Role, &p.FullName)
	return p, err
}

func (db *PgRoomRepository) UpsertProfile(ctx context.Context, profile Profile) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO profiles (id, role, full_name) VALUES ($1, $2, NULLIF($3, '')) "+
			"ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, "+
			"full_name = COALESCE(EXCLUDED.full_name, profiles.full_name)",
		profile.Id,
		profile.Role,
		profile.FullName,
	)
	return err
}
