package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

// RedisStore keeps the slot in a single redis string key so the cache survives
// restarts and is shared between server replicas.
type RedisStore struct {
	c   *redis.Client
	key string
	log *zap.Logger
}

func NewRedisStore(c *redis.Client, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{c: c, key: key, log: logger}
}

func (s *RedisStore) Load(ctx context.Context) ([]types.Room, error) {
	val, err := s.c.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return make([]types.Room, 0), nil
		}
		return nil, fmt.Errorf("load fallback cache: %w", err)
	}

	return decode(val, s.log), nil
}

// Append rewrites the slot under WATCH so concurrent appends do not drop rooms.
func (s *RedisStore) Append(ctx context.Context, room types.Room) error {
	txf := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, s.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		data, err := json.Marshal(append(decode(val, s.log), room))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		return err
	}

	for range 3 {
		err := s.c.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("append fallback cache: %w", err)
		}
		return nil
	}

	return fmt.Errorf("append fallback cache: %w", redis.TxFailedErr)
}
