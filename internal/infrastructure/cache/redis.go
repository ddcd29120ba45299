package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sparksai/insight-server/internal/config"
	"github.com/sparksai/insight-server/internal/domain/repository"
	"go.uber.org/zap"
)

// NewRedisClient creates the Redis client and verifies connectivity.
func NewRedisClient(cfg *config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.Database,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connection established", zap.String("address", cfg.Address))
	return client, nil
}

// RedisStore implements repository.CacheStore on go-redis. Every
// backend fault degrades to a miss or a no-op so callers always fall
// back to the authoritative store.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

var (
	_ repository.CacheStore         = (*RedisStore)(nil)
	_ repository.PatternInvalidator = (*RedisStore)(nil)
)

// NewRedisStore creates a cache store backed by the given client.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

// Get returns the cached value and whether it was present.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("Cache get failed, treating as miss",
				zap.String("key", key),
				zap.Error(err))
		}
		return nil, false
	}
	return value, true
}

// SetWithTTL stores a value with an expiry.
func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Warn("Cache set failed",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return true
}

// Exists reports whether the key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) bool {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.logger.Warn("Cache exists check failed",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return n > 0
}

// DeleteMany removes the given keys and returns how many existed.
func (s *RedisStore) DeleteMany(ctx context.Context, keys ...string) int {
	if len(keys) == 0 {
		return 0
	}
	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		s.logger.Warn("Cache delete failed",
			zap.Strings("keys", keys),
			zap.Error(err))
		return 0
	}
	return int(deleted)
}

// DeleteByPattern removes every key matching the glob pattern and
// returns how many were deleted. Used for report payload invalidation.
func (s *RedisStore) DeleteByPattern(ctx context.Context, pattern string) int {
	var deleted int
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("Cache delete failed",
				zap.String("key", iter.Val()),
				zap.Error(err))
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("Cache scan failed",
			zap.String("pattern", pattern),
			zap.Error(err))
	}
	return deleted
}
