package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/locafrota/fleetsla/internal/scenario/domain"
	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fleetsla:scenario_set:"

// redisStore keeps sets in redis so the working state survives restarts
// and is shared across instances. Redis expires the keys itself.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisStore(client *redis.Client, ttl time.Duration) *redisStore {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (*domain.Set, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var set domain.Set
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *redisStore) Save(ctx context.Context, set *domain.Set) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+set.SessionID, raw, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, redisKeyPrefix+sessionID).Err()
}

func (s *redisStore) PurgeExpired(context.Context) (int, error) {
	return 0, nil
}
