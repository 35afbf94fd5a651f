package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// RedisCacheStore shares cached analyses between bot processes, with a small
// local TinyLFU in front.
type RedisCacheStore struct {
	rdb  *redis.Client
	data *cache.Cache
	ttl  time.Duration
}

var _ CacheStore = (*RedisCacheStore)(nil)

func NewRedisCacheStore(redisURL string, localCapacity int, ttl time.Duration) (*RedisCacheStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if localCapacity <= 0 {
		localCapacity = 1000
	}
	return &RedisCacheStore{
		rdb: rdb,
		data: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(localCapacity, ttl),
		}),
		ttl: ttl,
	}, nil
}

func redisKey(name, key string) string {
	return "rugguard/" + name + "/" + key
}

func (s *RedisCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	var val string
	err := s.data.Get(ctx, redisKey(name, key), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", nil
	}
	return val, err
}

func (s *RedisCacheStore) Set(ctx context.Context, name, key string, val string) error {
	return s.data.Set(&cache.Item{Ctx: ctx, Key: redisKey(name, key), Value: val, TTL: s.ttl})
}

func (s *RedisCacheStore) Purge(ctx context.Context, name, key string) error {
	err := s.data.Delete(ctx, redisKey(name, key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (s *RedisCacheStore) Close() error { return s.rdb.Close() }
