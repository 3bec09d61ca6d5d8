package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/stats"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

type RoomFields struct {
	Title            string  `json:"title" validate:"required,max=200"`
	Location         string  `json:"location" validate:"required,max=200"`
	Rent             float64 `json:"rent" validate:"finite,gte=0"`
	PropertyType     string  `json:"property_type" validate:"required,max=50"`
	TenantPreference string  `json:"tenant_preference" validate:"required,max=50"`
	ContactNumber    string  `json:"contact_number" validate:"required,max=32"`
}

type Draft struct {
	RoomFields
	Files []Upload
}

type CreateResult struct {
	Room types.Room `json:"room"`
	// SavedLocally is set when the table store rejected the room and it was
	// kept in the fallback cache instead.
	SavedLocally bool     `json:"saved_locally"`
	Warnings     []string `json:"warnings"`
}

type EditRequest struct {
	RoomId  string
	OwnerId string
	// Fields replaces the scalar columns. Nil keeps the stored values.
	Fields        *RoomFields
	NewFiles      []Upload
	RemovedImages []string
}

type EditResult struct {
	Room     types.Room `json:"room"`
	Warnings []string   `json:"warnings"`
}

func (s *Service) validateFields(f RoomFields) error {
	if err := s.validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	return nil
}

// Create stores a new room for ownerId with the draft's photos. Photos that
// cannot be uploaded are replaced with placeholders. When the room insert
// itself fails the room is saved to the fallback cache and the result is
// flagged SavedLocally; an error is returned only if that also fails.
func (s *Service) Create(ctx context.Context, ownerId string, draft Draft) (*CreateResult, error) {
	if err := s.validateFields(draft.RoomFields); err != nil {
		return nil, err
	}

	res := &CreateResult{Warnings: make([]string, 0)}

	bucketErr := s.storage.CheckBucket(ctx)
	if bucketErr != nil && len(draft.Files) > 0 {
		s.log.Warn("photo bucket unavailable, using placeholders", zap.Error(bucketErr))
		res.Warnings = append(res.Warnings, "photo storage is unavailable; placeholder images were used")
	}

	images := make([]string, 0, len(draft.Files))
	for i, f := range draft.Files {
		millis := s.now().UnixMilli()
		if bucketErr != nil {
			images = append(images, uploadPlaceholder(ownerId, millis, i))
			s.stats.Incr(stats.PlaceholderImages)
			continue
		}

		url, err := s.upload(ctx, ownerId, f)
		if err != nil {
			s.log.Warn("photo upload failed, using placeholder", zap.String("file", f.Name), zap.Error(err))
			res.Warnings = append(res.Warnings, fmt.Sprintf("upload of %s failed; a placeholder image was used", f.Name))
			images = append(images, uploadPlaceholder(ownerId, millis, i))
			s.stats.Incr(stats.PlaceholderImages)
			continue
		}
		images = append(images, url)
	}

	row, err := s.repo.CreateRoom(ctx, database.CreateRoomParams{
		OwnerId:          ownerId,
		Title:            draft.Title,
		Location:         draft.Location,
		Rent:             draft.Rent,
		PropertyType:     draft.PropertyType,
		TenantPreference: draft.TenantPreference,
		ContactNumber:    draft.ContactNumber,
	})
	if err != nil {
		s.log.Error("room insert failed, saving locally", zap.String("owner_id", ownerId), zap.Error(err))
		return s.saveLocally(ctx, ownerId, draft.RoomFields, images, res)
	}

	room := toRoom(row)
	if len(images) > 0 {
		if _, err := s.repo.CreateRoomImages(ctx, row.Id, images); err != nil {
			s.log.Warn("room created but image rows failed", zap.String("room_id", row.Id), zap.Error(err))
			res.Warnings = append(res.Warnings, "room was created but its images could not be attached")
		} else {
			room.Images = images
		}
	}

	res.Room = room
	s.stats.Incr(stats.RoomsCreated)
	s.publish(types.EventRoomCreated, room.Id, &room)

	return res, nil
}

func (s *Service) saveLocally(ctx context.Context, ownerId string, f RoomFields, images []string, res *CreateResult) (*CreateResult, error) {
	createdAt := s.now().UTC()
	room := types.Room{
		Id:               uuid.NewString(),
		Title:            f.Title,
		Location:         f.Location,
		Rent:             f.Rent,
		PropertyType:     f.PropertyType,
		TenantPreference: f.TenantPreference,
		ContactNumber:    f.ContactNumber,
		Images:           images,
		OwnerId:          ownerId,
		CreatedAt:        &createdAt,
	}

	if err := s.cache.Append(ctx, room); err != nil {
		return nil, fmt.Errorf("save room locally: %w", err)
	}

	res.Room = room
	res.SavedLocally = true
	res.Warnings = append(res.Warnings, "room could not be saved to the server; saved locally for demo")

	return res, nil
}

func (s *Service) upload(ctx context.Context, ownerId string, f Upload) (string, error) {
	data, contentType, name := prepareUpload(f)
	path := objectPath(ownerId, s.now().UnixMilli(), name)

	if err := s.storage.Upload(ctx, path, contentType, data); err != nil {
		return "", err
	}
	s.stats.Incr(stats.ImagesUploaded)

	return s.storage.PublicURL(path), nil
}

// loadOwned fetches a room and checks that ownerId owns it.
func (s *Service) loadOwned(ctx context.Context, roomId, ownerId string) (database.Room, error) {
	row, err := s.repo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Room{}, ErrNotFound
		}
		return database.Room{}, fmt.Errorf("load room: %w", err)
	}

	if row.OwnerId != ownerId {
		return database.Room{}, ErrForbidden
	}

	return row, nil
}

// Edit applies an owner's changes to a room. New photos are appended, removed
// photos are detached and the scalar fields are written in a single update.
// Photo failures are reported as warnings; only the field update can fail the
// edit.
func (s *Service) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	if req.Fields != nil {
		if err := s.validateFields(*req.Fields); err != nil {
			return nil, err
		}
	}

	row, err := s.loadOwned(ctx, req.RoomId, req.OwnerId)
	if err != nil {
		return nil, err
	}

	res := &EditResult{Warnings: make([]string, 0)}

	removed := make(map[string]bool, len(req.RemovedImages))
	for _, u := range req.RemovedImages {
		removed[u] = true
	}

	images := make([]string, 0)
	for _, u := range roomImages(row) {
		if !removed[u] {
			images = append(images, u)
		}
	}

	uploaded := make([]string, 0, len(req.NewFiles))
	for _, f := range req.NewFiles {
		url, err := s.upload(ctx, req.OwnerId, f)
		if err != nil {
			s.log.Warn("photo upload failed, skipping", zap.String("file", f.Name), zap.Error(err))
			res.Warnings = append(res.Warnings, fmt.Sprintf("upload of %s failed", f.Name))
			continue
		}
		uploaded = append(uploaded, url)
	}

	if len(uploaded) > 0 {
		if _, err := s.repo.CreateRoomImages(ctx, row.Id, uploaded); err != nil {
			s.log.Warn("image rows insert failed", zap.String("room_id", row.Id), zap.Error(err))
			res.Warnings = append(res.Warnings, "photos were stored but could not be attached to the room")
		} else {
			images = append(images, uploaded...)
		}
	}

	if len(req.RemovedImages) > 0 {
		if err := s.repo.DeleteRoomImages(ctx, row.Id, req.RemovedImages); err != nil {
			s.log.Warn("failed to detach removed images", zap.String("room_id", row.Id), zap.Error(err))
		}
	}

	fields := RoomFields{
		Title:            row.Title,
		Location:         row.Location,
		Rent:             row.Rent,
		PropertyType:     row.PropertyType,
		TenantPreference: row.TenantPreference,
		ContactNumber:    row.ContactNumber,
	}
	if req.Fields != nil {
		fields = *req.Fields
	}

	err = s.repo.UpdateRoom(ctx, row.Id, database.UpdateRoomParams{
		Title:            fields.Title,
		Location:         fields.Location,
		Rent:             fields.Rent,
		PropertyType:     fields.PropertyType,
		TenantPreference: fields.TenantPreference,
		ContactNumber:    fields.ContactNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}

	room := toRoom(row)
	room.Title = fields.Title
	room.Location = fields.Location
	room.Rent = fields.Rent
	room.PropertyType = fields.PropertyType
	room.TenantPreference = fields.TenantPreference
	room.ContactNumber = fields.ContactNumber
	room.Images = images

	res.Room = room
	s.publish(types.EventRoomUpdated, room.Id, &room)

	return res, nil
}

// Delete removes an owner's room. Its image rows are left to the store.
func (s *Service) Delete(ctx context.Context, roomId, ownerId string) error {
	if _, err := s.loadOwned(ctx, roomId, ownerId); err != nil {
		return err
	}

	if err := s.repo.DeleteRoom(ctx, roomId); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}

	s.publish(types.EventRoomDeleted, roomId, nil)

	return nil
}

// PopulateImages gives every room without photos a placeholder. An empty
// ownerId covers all rooms. It returns how many rooms were updated.
func (s *Service) PopulateImages(ctx context.Context, ownerId string) (int, error) {
	rows, err := s.repo.ListRooms(ctx, database.RoomFilter{OwnerId: ownerId})
	if err != nil {
		return 0, fmt.Errorf("list rooms: %w", err)
	}

	var n int
	for _, row := range rows {
		if len(row.RoomImages) > 0 {
			continue
		}

		url := roomPlaceholder(row.Id)
		if _, err := s.repo.CreateRoomImages(ctx, row.Id, []string{url}); err != nil {
			s.log.Warn("failed to add placeholder image", zap.String("room_id", row.Id), zap.Error(err))
			continue
		}

		n++
		s.stats.Incr(stats.PlaceholderImages)

		room := toRoom(row)
		room.Images = []string{url}
		s.publish(types.EventRoomUpdated, room.Id, &room)
	}

	return n, nil
}
