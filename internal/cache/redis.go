package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisStore namespaces every key under Prefix so prefix scans never touch
// foreign data on a shared server.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(opt *redis.Options, prefix string) *RedisStore {
	return &RedisStore{Client: redis.NewClient(opt), Prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.Prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.Client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.Client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) scan(ctx context.Context, prefix string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.Client.Scan(ctx, cursor, s.key(prefix)+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisStore) Count(ctx context.Context, prefix string) (int, error) {
	n := 0
	err := s.scan(ctx, prefix, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	n := 0
	err := s.scan(ctx, prefix, func(keys []string) error {
		removed, err := s.Client.Del(ctx, keys...).Result()
		n += int(removed)
		return err
	})
	return n, err
}

// Cleanup is a no-op: redis expires keys itself.
func (s *RedisStore) Cleanup(context.Context) (int, error) { return 0, nil }

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
