package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis server (or API-compatible
// substitute). All command failures are wrapped in ErrUnavailable; absent
// values are reported through the ok returns, never as errors.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the store at endpoint, a redis:// connection
// string (e.g. redis://:password@host:6379/0). The connection is lazy;
// use Ping to verify reachability at startup.
func NewRedisStore(endpoint string) (*RedisStore, error) {
	opts, err := redis.ParseURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid store endpoint %q: %w", endpoint, err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("HGET", err)
	}
	return v, true, nil
}

func (s *RedisStore) HashSet(ctx context.Context, key string, fields map[string]string) error {
	args := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	if err := s.client.HSet(ctx, key, args...).Err(); err != nil {
		return unavailable("HSET", err)
	}
	return nil
}

func (s *RedisStore) HashSetNX(ctx context.Context, key, field, value string) (bool, error) {
	set, err := s.client.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, unavailable("HSETNX", err)
	}
	return set, nil
}

func (s *RedisStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable("HGETALL", err)
	}
	return m, nil
}

func (s *RedisStore) HashDelete(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, key, fields...).Err(); err != nil {
		return unavailable("HDEL", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("GET", err)
	}
	return v, true, nil
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	set, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, unavailable("SET NX", err)
	}
	return set, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable("EXISTS", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return unavailable("EXPIRE", err)
	}
	return nil
}

func (s *RedisStore) PushLeft(ctx context.Context, key, value string) error {
	if err := s.client.LPush(ctx, key, value).Err(); err != nil {
		return unavailable("LPUSH", err)
	}
	return nil
}

func (s *RedisStore) PopRight(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.RPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("RPOP", err)
	}
	return v, true, nil
}

func (s *RedisStore) BlockingPopRight(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	// BRPOP returns [key, value] or redis.Nil on timeout. The server-side
	// block may complete even if ctx is cancelled mid-wait; a message popped
	// that way is lost to the broker (accepted lossy-delivery trade-off).
	res, err := s.client.BRPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("BRPOP", err)
	}
	if len(res) != 2 {
		return "", false, unavailable("BRPOP", fmt.Errorf("unexpected reply length %d", len(res)))
	}
	return res[1], true, nil
}

func (s *RedisStore) PopRightCount(ctx context.Context, key string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	res, err := s.client.RPopCount(ctx, key, count).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("RPOP COUNT", err)
	}
	return res, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("PING", err)
	}
	return nil
}

func unavailable(command string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, command, err)
}
