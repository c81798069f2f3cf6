package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var _ Storage = (*CacheStorage)(nil)

// CacheStorage stores values in a gocache backend, either in process memory or in redis.
// All keys are prefixed so several applications can share one redis instance.
type CacheStorage struct {
	cache     *cache.Cache[string]
	storeType string
	prefix    string
	quota  int64
	closer func() error
}

// NewMemoryStorage creates a storage that lives as long as the process.
func NewMemoryStorage(prefix string, quota int64) *CacheStorage {
	// values never expire, a session lives until it is cleared
	gocacheClient := gocache.New(gocache.NoExpiration, gocache.NoExpiration)
	gocacheStore := go_store.NewGoCache(gocacheClient)
	return &CacheStorage{
		cache:     cache.New[string](gocacheStore),
		storeType: gocacheStore.GetType(),
		prefix:    prefix,
		quota:     quota,
	}
}

// NewRedisStorage creates a storage backed by redis. redisURL may either be a
// redis:// URL or a plain host:port address.
func NewRedisStorage(redisURL, prefix string, quota int64) (*CacheStorage, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	redisClient := redis.NewClient(opts)
	redisStore := redis_store.NewRedis(redisClient)
	return &CacheStorage{
		cache:     cache.New[string](redisStore),
		storeType: redisStore.GetType(),
		prefix:    prefix,
		quota:     quota,
		closer:    redisClient.Close,
	}, nil
}

func (s *CacheStorage) key(key string) string {
	return s.prefix + key
}

// Get retrieves the value stored under the prefixed key.
func (s *CacheStorage) Get(ctx context.Context, key string) (string, error) {
	value, err := s.cache.Get(ctx, s.key(key))
	if err != nil {
		if errors.Is(err, store.NotFound{}) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get %s from %s store: %w", key, s.storeType, err)
	}
	return value, nil
}

// Set stores the value under the prefixed key.
func (s *CacheStorage) Set(ctx context.Context, key, value string) error {
	if err := checkQuota(key, value, s.quota); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, s.key(key), value); err != nil {
		return fmt.Errorf("failed to set %s in %s store: %w", key, s.storeType, err)
	}
	return nil
}

// Remove deletes the prefixed key.
func (s *CacheStorage) Remove(ctx context.Context, key string) error {
	if err := s.cache.Delete(ctx, s.key(key)); err != nil && !errors.Is(err, store.NotFound{}) {
		return fmt.Errorf("failed to remove %s from %s store: %w", key, s.storeType, err)
	}
	return nil
}

// GetType returns the name of the underlying store.
func (s *CacheStorage) GetType() string {
	return s.storeType
}

// Close closes the redis client, if any.
func (s *CacheStorage) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
