package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/angola-gov/vigilancia/internal/shared/config"
	"github.com/angola-gov/vigilancia/internal/shared/metrics"
)

// RedisStore backs the aggregate cache with Redis. Tag membership lives in
// Redis sets, so invalidating a tag is one SMEMBERS plus one DEL regardless of
// how many parameterized keys were written under it.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client, logger: logger}
}

// Ping verifies the backend connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		s.logger.Warn("cache get failed, falling back to recomputation",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return raw, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagKey(tag), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		keys, err := s.client.SMembers(ctx, tagKey(tag)).Result()
		if err != nil {
			s.logger.Warn("cache tag lookup failed", zap.String("tag", tag), zap.Error(err))
			return err
		}
		keys = append(keys, tagKey(tag))
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("cache invalidation failed", zap.String("tag", tag), zap.Error(err))
			return err
		}
		metrics.RecordCacheInvalidation(tag)
	}
	return nil
}

func tagKey(tag string) string {
	return "tag:" + tag
}
