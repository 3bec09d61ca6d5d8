// Package fallback holds the local demo cache of rooms that is served when the
// remote table store is unreachable and written when a room insert fails.
package fallback

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

// Store is a single named slot holding a JSON list of rooms. Load never fails
// on an absent or corrupt slot; it returns an empty list instead.
type Store interface {
	Load(ctx context.Context) ([]types.Room, error)
	Append(ctx context.Context, room types.Room) error
}

// decode parses the slot contents. Anything that is not a JSON list of rooms is
// treated as an empty cache.
func decode(data []byte, log *zap.Logger) []types.Room {
	rooms := make([]types.Room, 0)
	if len(data) == 0 {
		return rooms
	}

	if err := json.Unmarshal(data, &rooms); err != nil {
		log.Warn("discarding corrupt fallback cache", zap.Error(err))
		return make([]types.Room, 0)
	}

	for i := range rooms {
		if rooms[i].Images == nil {
			rooms[i].Images = make([]string, 0)
		}
	}

	return rooms
}

type MemoryStore struct {
	mu   sync.Mutex
	data []byte
	log  *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{log: logger}
}

// Set replaces the raw slot contents.
func (s *MemoryStore) Set(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

func (s *MemoryStore) Load(ctx context.Context) ([]types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decode(s.data, s.log), nil
}

func (s *MemoryStore) Append(ctx context.Context, room types.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := append(decode(s.data, s.log), room)
	data, err := json.Marshal(rooms)
	if err != nil {
		return err
	}
	s.data = data

	return nil
}
