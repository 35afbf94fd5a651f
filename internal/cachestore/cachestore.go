// Package cachestore caches serialized analyses so an account asked about
// repeatedly is not re-fetched within the TTL.
package cachestore

import (
	"context"
	"time"
)

// Namespaces.
const (
	// analysis JSON keyed by lower-cased username
	Analyses = "analysis"
)

// CacheStore returns "" without error on a miss.
type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}

// New returns a Redis-backed store when redisURL is set, else an in-process one.
func New(redisURL string, capacity int, ttl time.Duration) (CacheStore, error) {
	if redisURL != "" {
		return NewRedisCacheStore(redisURL, capacity, ttl)
	}
	return NewMemCacheStore(capacity, ttl), nil
}
