package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm-access-be/pkg/access"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix        = "crm-access:effective"
	redisGenerationKey = redisPrefix + ":gen"
)

// RedisEffectiveStore shares resolved feature sets between instances. Keys
// carry a generation number so EvictAll is a single INCR.
type RedisEffectiveStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisEffectiveStore(rdb *redis.Client, ttl time.Duration) *RedisEffectiveStore {
	return &RedisEffectiveStore{rdb: rdb, ttl: ttl}
}

func (s *RedisEffectiveStore) generation(ctx context.Context) (int64, error) {
	gen, err := s.rdb.Get(ctx, redisGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *RedisEffectiveStore) key(gen int64, profileId uuid.UUID) string {
	return fmt.Sprintf("%s:%d:%s", redisPrefix, gen, profileId)
}

func (s *RedisEffectiveStore) Get(ctx context.Context, profileId uuid.UUID) ([]access.EffectiveFeature, bool, error) {
	gen, err := s.generation(ctx)
	if err != nil {
		return nil, false, err
	}
	raw, err := s.rdb.Get(ctx, s.key(gen, profileId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var features []access.EffectiveFeature
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil, false, err
	}
	return features, true, nil
}

func (s *RedisEffectiveStore) Set(ctx context.Context, profileId uuid.UUID, features []access.EffectiveFeature) error {
	gen, err := s.generation(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(gen, profileId), raw, s.ttl).Err()
}

func (s *RedisEffectiveStore) Evict(ctx context.Context, profileId uuid.UUID) error {
	gen, err := s.generation(ctx)
	if err != nil {
		return err
	}
	return s.rdb.Del(ctx, s.key(gen, profileId)).Err()
}

// EvictAll orphans every entry of the current generation; they expire on TTL.
func (s *RedisEffectiveStore) EvictAll(ctx context.Context) error {
	return s.rdb.Incr(ctx, redisGenerationKey).Err()
}
