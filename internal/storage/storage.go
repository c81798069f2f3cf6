package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ccoveille/go-safecast"
	"github.com/dustin/go-humanize"
	"github.com/jon4hz/moments/internal/config"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned by Set when a value does not fit into the configured quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Storage is a persistent string key/value store. Values are opaque text;
// callers do their own serialisation.
type Storage interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the underlying resources.
	Close() error
}

// New creates the storage backend selected by cfg.Type.
func New(cfg *config.StorageConfig) (Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	switch cfg.Type {
	case config.StorageTypeMemory:
		return NewMemoryStorage(cfg.Prefix, cfg.QuotaBytes), nil
	case config.StorageTypeRedis:
		return NewRedisStorage(cfg.RedisURL, cfg.Prefix, cfg.QuotaBytes)
	case config.StorageTypeSQLite:
		return NewSQLiteStorage(cfg.Path, cfg.QuotaBytes)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// checkQuota mimics the per-origin quota of browser storage. A quota of 0 disables the check.
func checkQuota(key, value string, quota int64) error {
	if quota <= 0 {
		return nil
	}
	size := int64(len(key) + len(value))
	if size <= quota {
		return nil
	}
	need, err := safecast.ToUint64(size)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, key)
	}
	limit, err := safecast.ToUint64(quota)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, key)
	}
	return fmt.Errorf("%w: %s needs %s, quota is %s", ErrQuotaExceeded, key,
		humanize.IBytes(need), humanize.IBytes(limit))
}
