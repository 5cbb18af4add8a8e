package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/codepet/classroom-sync-api/pkg/errors"
)

// CacheRepository provides Redis helpers for the import result cache and the
// owner-scoped import lease. A nil client degrades to no-ops.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

func importLockKey(ownerID string) string {
	return "import:lock:" + ownerID
}

// AcquireImportLock takes the owner-scoped import lease. It returns false
// when another import for the same owner currently holds the lease. Without
// a Redis client the lease always succeeds, matching the source system's
// accepted-risk behavior.
func (r *CacheRepository) AcquireImportLock(ctx context.Context, ownerID string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, importLockKey(ownerID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire import lock for %s: %w", ownerID, err)
	}
	return ok, nil
}

// ReleaseImportLock frees the owner-scoped lease. Failure is logged only; the
// TTL bounds how long a stale lease can linger.
func (r *CacheRepository) ReleaseImportLock(ctx context.Context, ownerID string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, importLockKey(ownerID)).Err(); err != nil {
		r.logger.Warn("failed to release import lock",
			zap.String("owner_id", ownerID), zap.Error(err))
	}
}
