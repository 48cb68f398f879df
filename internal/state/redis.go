package state

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "ideaspire:state:processing"

func redisKey(key string) string {
	if key == "" {
		return defaultRedisKey
	}
	return key
}

// RedisStore keeps the blob under a single key, so state is shared by every
// instance pointing at the same Redis.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, key string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, key: redisKey(key), logger: logger}
}

func (s *RedisStore) Kind() string {
	return "redis"
}

func (s *RedisStore) Save(ctx context.Context, st *model.ProcessingState) bool {
	content, err := encode(st)
	if err != nil {
		s.logger.Error("error encoding state", "error", err)
		return false
	}

	if err := s.client.Set(ctx, s.key, content, 0).Err(); err != nil {
		s.logger.Error("error saving state to redis", "key", s.key, "error", err)
		return false
	}
	return true
}

func (s *RedisStore) Load(ctx context.Context) *model.ProcessingState {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		s.logger.Error("error loading state from redis", "key", s.key, "error", err)
		return nil
	}

	st, err := decode(raw)
	if err != nil {
		s.logger.Error("error decoding state", "key", s.key, "error", err)
		return nil
	}
	return st
}

func (s *RedisStore) Clear(ctx context.Context) bool {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.logger.Error("error clearing state in redis", "key", s.key, "error", err)
		return false
	}
	return true
}
