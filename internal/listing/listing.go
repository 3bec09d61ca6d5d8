// Package listing reads room listings for display and carries out the owner
// mutation flows (create, edit, delete, placeholder population).
package listing

import (
	"context"
	"errors"
	"math"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/fallback"
	"github.com/npezzotti/roomrent/internal/stats"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("room not found")
	ErrForbidden    = errors.New("room belongs to another owner")
	ErrInvalidDraft = errors.New("invalid room")
)

// ImageStorage is the object store room photos are uploaded to.
type ImageStorage interface {
	// CheckBucket returns nil when the photo bucket is reachable.
	CheckBucket(ctx context.Context) error
	Upload(ctx context.Context, path, contentType string, data []byte) error
	PublicURL(path string) string
}

type Publisher interface {
	Publish(event types.RoomEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(types.RoomEvent) {}

type Service struct {
	repo     database.RoomRepository
	storage  ImageStorage
	cache    fallback.Store
	feed     Publisher
	stats    stats.StatsProvider
	validate *validator.Validate
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.feed = p
	}
}

func WithStats(sp stats.StatsProvider) Option {
	return func(s *Service) {
		s.stats = sp
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo database.RoomRepository, storage ImageStorage, cache fallback.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		storage:  storage,
		cache:    cache,
		feed:     nopPublisher{},
		stats:    stats.NopStats{},
		validate: newValidator(),
		now:      time.Now,
		log:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// gte alone lets +Inf through.
	if err := v.RegisterValidation("finite", isFinite); err != nil {
		panic(err)
	}
	return v
}

func isFinite(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		return !math.IsNaN(f.Float()) && !math.IsInf(f.Float(), 0)
	}
	return true
}

func (s *Service) publish(eventType string, roomId string, room *types.Room) {
	s.feed.Publish(types.RoomEvent{
		Type:      eventType,
		RoomId:    roomId,
		Room:      room,
		Timestamp: s.now().UTC(),
	})
}

// roomImages returns the joined image rows, falling back to the legacy inline
// list. The result is never nil.
func roomImages(r database.Room) []string {
	images := make([]string, 0, len(r.RoomImages))
	for _, img := range r.RoomImages {
		images = append(images, img.ImageUrl)
	}
	if len(images) > 0 {
		return images
	}

	return append(images, r.Images...)
}

func toRoom(r database.Room) types.Room {
	room := types.Room{
		Id:               r.Id,
		Title:            r.Title,
		Location:         r.Location,
		Rent:             r.Rent,
		PropertyType:     r.PropertyType,
		TenantPreference: r.TenantPreference,
		ContactNumber:    r.ContactNumber,
		Images:           roomImages(r),
		OwnerId:          r.OwnerId,
	}
	if !r.CreatedAt.IsZero() {
		createdAt := r.CreatedAt
		room.CreatedAt = &createdAt
	}

	return room
}

func toRooms(rows []database.Room) []types.Room {
	rooms := make([]types.Room, 0, len(rows))
	for _, r := range rows {
		rooms = append(rooms, toRoom(r))
	}
	return rooms
}
