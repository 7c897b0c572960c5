package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginFailureWindow = 15 * time.Minute

	processingSumKey   = "uploads:processing_ms"
	processingCountKey = "uploads:processed"
)

// RedisStore keeps short-lived auth state and operational counters:
// failed-login throttling, revoked JWT ids, upload processing stats.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(opts *redis.Options) *RedisStore {
	rdb := redis.NewClient(opts)
	return &RedisStore{client: rdb}
}

// RegisterLoginFailure bumps the failure counter for an email+IP pair
// and returns the count inside the current window.
func (s *RedisStore) RegisterLoginFailure(ctx context.Context, key string) (int64, error) {
	redisKey := fmt.Sprintf("login_failures:%s", key)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, loginFailureWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return incr.Val(), nil
}

func (s *RedisStore) ClearLoginFailures(ctx context.Context, key string) error {
	return s.client.Del(ctx, fmt.Sprintf("login_failures:%s", key)).Err()
}

// RevokeToken marks a JWT id as dead until its natural expiry. The TTL
// keeps the denylist from growing without bound.
func (s *RedisStore) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, fmt.Sprintf("revoked:%s", jti), 1, ttl).Err()
}

func (s *RedisStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, fmt.Sprintf("revoked:%s", jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordProcessingTime accumulates decode+persist duration for the
// admin analytics average.
func (s *RedisStore) RecordProcessingTime(ctx context.Context, d time.Duration) error {
	pipe := s.client.Pipeline()
	pipe.IncrByFloat(ctx, processingSumKey, float64(d.Milliseconds()))
	pipe.Incr(ctx, processingCountKey)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) AvgProcessingTime(ctx context.Context) (time.Duration, error) {
	vals, err := s.client.MGet(ctx, processingSumKey, processingCountKey).Result()
	if err != nil {
		return 0, err
	}

	sum := redisFloat(vals[0])
	count := redisFloat(vals[1])
	if count == 0 {
		return 0, nil
	}

	return time.Duration(sum/count) * time.Millisecond, nil
}

func redisFloat(v any) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
