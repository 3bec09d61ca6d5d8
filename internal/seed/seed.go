// Package seed fills a fresh project with demo accounts and listings.
package seed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/supabase"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

type AdminClient interface {
	AdminCreateUser(ctx context.Context, email, password string) (*supabase.AuthUser, error)
	AdminFindUserByEmail(ctx context.Context, email string) (*supabase.AuthUser, error)
}

type User struct {
	Email    string
	Password string
	Role     types.Role
	FullName string
}

type Room struct {
	OwnerEmail       string
	Title            string
	Location         string
	Rent             float64
	PropertyType     string
	TenantPreference string
	ContactNumber    string
	Images           []string
}

var DefaultUsers = []User{
	{Email: "asha.owner@example.com", Password: "Password123!", Role: types.RoleOwner, FullName: "Asha Singh"},
	{Email: "rohit.owner@example.com", Password: "Password123!", Role: types.RoleOwner, FullName: "Rohit Sharma"},
	{Email: "priya.user@example.com", Password: "Password123!", Role: types.RoleUser, FullName: "Priya Verma"},
}

var DefaultRooms = []Room{
	{
		OwnerEmail:       "asha.owner@example.com",
		Title:            "Cozy 1 BHK near Central Park",
		Location:         "Mumbai, Andheri East",
		Rent:             12000,
		PropertyType:     "1 BHK",
		TenantPreference: "bachelor",
		ContactNumber:    "9123456780",
		Images:           []string{"https://picsum.photos/seed/room1/800/600"},
	},
	{
		OwnerEmail:       "asha.owner@example.com",
		Title:            "Spacious 2 BHK with balcony",
		Location:         "Mumbai, Bandra West",
		Rent:             25000,
		PropertyType:     "2 BHK",
		TenantPreference: "family",
		ContactNumber:    "9123456781",
		Images:           []string{"https://picsum.photos/seed/room2/800/600"},
	},
	{
		OwnerEmail:       "rohit.owner@example.com",
		Title:            "Budget 1BHK, great for bachelors",
		Location:         "Delhi, Lajpat Nagar",
		Rent:             8000,
		PropertyType:     "1 BHK",
		TenantPreference: "bachelor",
		ContactNumber:    "9876543210",
		Images:           []string{"https://picsum.photos/seed/room3/800/600"},
	},
}

type SeededUser struct {
	Id    string     `json:"id"`
	Email string     `json:"email"`
	Role  types.Role `json:"role"`
}

type Summary struct {
	Users  []SeededUser `json:"users"`
	Rooms  int          `json:"rooms"`
	Images int          `json:"images"`
}

// Seeder writes with service-role credentials, so row-level security does not
// apply to it.
type Seeder struct {
	admin AdminClient
	repo  database.RoomRepository
	log   *zap.Logger
}

func NewSeeder(admin AdminClient, repo database.RoomRepository, logger *zap.Logger) *Seeder {
	return &Seeder{admin: admin, repo: repo, log: logger}
}

// Seed creates users, their profiles and rooms. Failures on individual records
// are logged and skipped; only a cancelled context stops the run.
func (s *Seeder) Seed(ctx context.Context, users []User, rooms []Room) (*Summary, error) {
	sum := &Summary{Users: make([]SeededUser, 0, len(users))}
	ids := make(map[string]string, len(users))

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		id, err := s.ensureUser(ctx, u)
		if err != nil {
			s.log.Error("could not create user", zap.String("email", u.Email), zap.Error(err))
			continue
		}
		ids[u.Email] = id

		err = s.repo.UpsertProfile(ctx, database.Profile{Id: id, Role: string(u.Role), FullName: u.FullName})
		if err != nil {
			s.log.Error("profile upsert failed", zap.String("email", u.Email), zap.Error(err))
		}

		sum.Users = append(sum.Users, SeededUser{Id: id, Email: u.Email, Role: u.Role})
	}

	for _, r := range rooms {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		ownerId, ok := ids[r.OwnerEmail]
		if !ok {
			s.log.Warn("no owner for room", zap.String("title", r.Title), zap.String("owner", r.OwnerEmail))
			continue
		}

		room, err := s.repo.CreateRoom(ctx, database.CreateRoomParams{
			OwnerId:          ownerId,
			Title:            r.Title,
			Location:         r.Location,
			Rent:             r.Rent,
			PropertyType:     r.PropertyType,
			TenantPreference: r.TenantPreference,
			ContactNumber:    r.ContactNumber,
		})
		if err != nil {
			s.log.Error("room insert failed", zap.String("title", r.Title), zap.Error(err))
			continue
		}
		sum.Rooms++

		if len(r.Images) == 0 {
			continue
		}
		images, err := s.repo.CreateRoomImages(ctx, room.Id, r.Images)
		if err != nil {
			s.log.Error("room images insert failed", zap.String("room_id", room.Id), zap.Error(err))
			continue
		}
		sum.Images += len(images)
	}

	return sum, nil
}

// ensureUser creates u with a confirmed email, or looks it up when it exists.
func (s *Seeder) ensureUser(ctx context.Context, u User) (string, error) {
	created, err := s.admin.AdminCreateUser(ctx, u.Email, u.Password)
	if err == nil {
		s.log.Info("created user", zap.String("email", u.Email), zap.String("id", created.Id))
		return created.Id, nil
	}

	if !supabase.IsKind(err, supabase.KindConflict) && !isAlreadyRegistered(err) {
		return "", err
	}

	s.log.Info("user exists, looking it up", zap.String("email", u.Email))
	existing, err := s.admin.AdminFindUserByEmail(ctx, u.Email)
	if err != nil {
		return "", fmt.Errorf("find existing user: %w", err)
	}

	return existing.Id, nil
}

// isAlreadyRegistered matches the 422 some auth server versions return for an
// existing email instead of 409.
func isAlreadyRegistered(err error) bool {
	var sbErr *supabase.Error
	if !errors.As(err, &sbErr) || sbErr.Status != http.StatusUnprocessableEntity {
		return false
	}
	return strings.Contains(strings.ToLower(sbErr.Message), "already")
}
