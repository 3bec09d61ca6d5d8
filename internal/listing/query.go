package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/stats"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

// ListRooms returns the rooms matching filter, newest first. When the table
// store fails it serves the local fallback cache instead, unfiltered, and
// never returns an error.
func (s *Service) ListRooms(ctx context.Context, filter types.RoomFilter) []types.Room {
	s.stats.Incr(stats.ListingQueries)

	rows, err := s.repo.ListRooms(ctx, database.RoomFilter{
		Location: filter.Location,
		MinRent:  filter.MinPrice,
		MaxRent:  filter.MaxPrice,
	})
	if err != nil {
		s.log.Warn("listing query failed, serving fallback cache", zap.Error(err))
		s.stats.Incr(stats.FallbackServed)
		return s.fallbackRooms(ctx)
	}

	return toRooms(rows)
}

func (s *Service) fallbackRooms(ctx context.Context) []types.Room {
	rooms, err := s.cache.Load(ctx)
	if err != nil {
		s.log.Error("failed to load fallback cache", zap.Error(err))
		return make([]types.Room, 0)
	}

	return rooms
}

func (s *Service) GetRoom(ctx context.Context, id string) (types.Room, error) {
	row, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Room{}, ErrNotFound
		}
		return types.Room{}, fmt.Errorf("get room: %w", err)
	}

	return toRoom(row), nil
}

func (s *Service) ListOwnerRooms(ctx context.Context, ownerId string) ([]types.Room, error) {
	rows, err := s.repo.ListRooms(ctx, database.RoomFilter{OwnerId: ownerId})
	if err != nil {
		return nil, fmt.Errorf("list owner rooms: %w", err)
	}

	return toRooms(rows), nil
}
