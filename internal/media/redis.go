package media

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"eco/pkg/types"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "eco:signed-url:"

// RedisStore shares signed URLs between server instances.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStore(client *redis.Client, logger *logrus.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]types.SignedURL, bool) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Warn("signed url cache read failed")
		}
		return nil, false
	}

	var urls []types.SignedURL
	if err := json.Unmarshal(raw, &urls); err != nil {
		s.logger.WithError(err).Warn("signed url cache entry is corrupt")
		return nil, false
	}

	return urls, true
}

func (s *RedisStore) Set(ctx context.Context, key string, urls []types.SignedURL, ttl time.Duration) {
	payload, err := json.Marshal(urls)
	if err != nil {
		s.logger.WithError(err).Warn("failed to encode signed url cache entry")
		return
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key, payload, ttl).Err(); err != nil {
		s.logger.WithError(err).Warn("signed url cache write failed")
	}
}
