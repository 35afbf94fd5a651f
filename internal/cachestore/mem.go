package cachestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemCacheStore struct {
	data *expirable.LRU[string, string]
}

var _ CacheStore = (*MemCacheStore)(nil)

func NewMemCacheStore(capacity int, ttl time.Duration) *MemCacheStore {
	return &MemCacheStore{data: expirable.NewLRU[string, string](capacity, nil, ttl)}
}

func memKey(name, key string) string { return name + "/" + key }

func (s *MemCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	v, _ := s.data.Get(memKey(name, key))
	return v, nil
}

func (s *MemCacheStore) Set(ctx context.Context, name, key string, val string) error {
	s.data.Add(memKey(name, key), val)
	return nil
}

func (s *MemCacheStore) Purge(ctx context.Context, name, key string) error {
	s.data.Remove(memKey(name, key))
	return nil
}
