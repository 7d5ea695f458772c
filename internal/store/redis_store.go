package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/plantpal/internal/config"
)

const (
	followingKeyPrefix      = "plantpal:following:"
	followersCountKeyPrefix = "plantpal:followers:count:"
	hotKeyScoresKey         = "plantpal:hotkey:scores"
)

// defaultFollowersCountTTL bounds how long a drifted count can survive when
// its user is never reconciled.
const defaultFollowersCountTTL = time.Hour

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// FollowStore caches follow-graph reads in Redis: the following list read
// on every feed page, and followers counts with hot-key tracking.
type FollowStore interface {
	GetFollowing(ctx context.Context, userID string) ([]string, error)
	SetFollowing(ctx context.Context, userID string, ids []string, ttl time.Duration) error
	InvalidateFollowing(ctx context.Context, userIDs ...string) error

	GetFollowersCount(ctx context.Context, userID string) (int64, bool, error)
	SetFollowersCount(ctx context.Context, userID string, count int64) error
	CondIncrFollowersCount(ctx context.Context, userID string) error
	CondDecrFollowersCount(ctx context.Context, userID string) error

	RecordAccess(ctx context.Context, userID string) error
	GetTopHotKeys(ctx context.Context, n int64) ([]string, error)
	ResetHotKeyScores(ctx context.Context) error

	Close() error
}

// RedisFollowStore implements FollowStore backed by Redis.
type RedisFollowStore struct {
	client   *redis.Client
	countTTL time.Duration
}

// NewRedisFollowStore connects to Redis and verifies the connection.
// Followers counts expire after cache.FollowersCountTTL (one hour when unset).
func NewRedisFollowStore(cfg config.RedisConfig, cache config.CacheConfig) (*RedisFollowStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	countTTL := cache.FollowersCountTTL
	if countTTL <= 0 {
		countTTL = defaultFollowersCountTTL
	}
	return &RedisFollowStore{client: client, countTTL: countTTL}, nil
}

func followingKey(userID string) string {
	return followingKeyPrefix + userID
}

func followersCountKey(userID string) string {
	return followersCountKeyPrefix + userID
}

// GetFollowing returns the cached following list, or ErrCacheMiss.
// An empty cached list is a hit.
func (s *RedisFollowStore) GetFollowing(ctx context.Context, userID string) ([]string, error) {
	data, err := s.client.Get(ctx, followingKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get following: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal following: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *RedisFollowStore) SetFollowing(ctx context.Context, userID string, ids []string, ttl time.Duration) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal following: %w", err)
	}
	if err := s.client.Set(ctx, followingKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set following: %w", err)
	}
	return nil
}

func (s *RedisFollowStore) InvalidateFollowing(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, followingKey(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis invalidate following: %w", err)
	}
	return nil
}

// GetFollowersCount returns (count, true, nil) on hit and (0, false, nil) on miss.
func (s *RedisFollowStore) GetFollowersCount(ctx context.Context, userID string) (int64, bool, error) {
	val, err := s.client.Get(ctx, followersCountKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get followers count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse followers count: %w", err)
	}
	return count, true, nil
}

// SetFollowersCount caches count with the store's TTL. Conditional
// increments and decrements keep the remaining TTL.
func (s *RedisFollowStore) SetFollowersCount(ctx context.Context, userID string, count int64) error {
	if err := s.client.Set(ctx, followersCountKey(userID), count, s.countTTL).Err(); err != nil {
		return fmt.Errorf("redis set followers count: %w", err)
	}
	return nil
}

// condIncrScript increments the key only if it exists.
var condIncrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  return redis.call("INCR", key)
end
return 0
`)

// condDecrScript decrements the key only if it exists and stays >= 0.
var condDecrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  local val = tonumber(redis.call("GET", key))
  if val and val > 0 then
    return redis.call("DECR", key)
  end
end
return 0
`)

// CondIncrFollowersCount only touches counts that are already cached, so an
// event can never seed a count that was not read from the database.
func (s *RedisFollowStore) CondIncrFollowersCount(ctx context.Context, userID string) error {
	err := condIncrScript.Run(ctx, s.client, []string{followersCountKey(userID)}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond incr followers count: %w", err)
	}
	return nil
}

func (s *RedisFollowStore) CondDecrFollowersCount(ctx context.Context, userID string) error {
	err := condDecrScript.Run(ctx, s.client, []string{followersCountKey(userID)}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond decr followers count: %w", err)
	}
	return nil
}

// RecordAccess bumps userID's score in the hot-key sorted set.
func (s *RedisFollowStore) RecordAccess(ctx context.Context, userID string) error {
	if err := s.client.ZIncrBy(ctx, hotKeyScoresKey, 1, userID).Err(); err != nil {
		return fmt.Errorf("redis record access: %w", err)
	}
	return nil
}

// GetTopHotKeys returns the n most read user ids.
func (s *RedisFollowStore) GetTopHotKeys(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	keys, err := s.client.ZRevRange(ctx, hotKeyScoresKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get top hot keys: %w", err)
	}
	return keys, nil
}

func (s *RedisFollowStore) ResetHotKeyScores(ctx context.Context) error {
	if err := s.client.Del(ctx, hotKeyScoresKey).Err(); err != nil {
		return fmt.Errorf("redis reset hot key scores: %w", err)
	}
	return nil
}

func (s *RedisFollowStore) Close() error {
	return s.client.Close()
}

var _ FollowStore = (*RedisFollowStore)(nil)
