package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const profileKeyPrefix = "profile:"

// RedisStore keeps each profile as a JSON value under profile:<id>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and pings it. A zero ttl keeps profiles
// forever.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Load(ctx context.Context, playerID string) (Profile, error) {
	data, err := r.client.Get(ctx, profileKeyPrefix+playerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("get profile %s: %w", playerID, err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", playerID, err)
	}
	return p, nil
}

func (r *RedisStore) Save(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.PlayerID, err)
	}
	if err := r.client.Set(ctx, profileKeyPrefix+p.PlayerID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set profile %s: %w", p.PlayerID, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
