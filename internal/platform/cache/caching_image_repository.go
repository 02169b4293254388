// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lpr_backend/internal/feature/history/domain/entity"
	"lpr_backend/internal/feature/history/usecase"
)

// CachingImageRepository decorates an ImageRepository with Redis caching.
// It implements the decorator pattern, transparently adding caching without
// modifying the underlying repository.
//
// Only completed records are cached: their detection results never change
// after processing, so the cached copy can only become invalid through
// deletion, which this decorator handles.
type CachingImageRepository struct {
	inner     usecase.ImageRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// CachingImageRepository implements usecase.ImageRepository.
var _ usecase.ImageRepository = (*CachingImageRepository)(nil)

// NewCachingImageRepository decorates an ImageRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "images".
func NewCachingImageRepository(rdb *redis.Client, ttl time.Duration, inner usecase.ImageRepository, namespace string) *CachingImageRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "images"
	}
	return &CachingImageRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// List always hits the underlying repository: the result set changes with
// every upload, so caching it would serve stale pages.
func (c *CachingImageRepository) List(ctx context.Context, filter usecase.ListFilter) ([]entity.UploadedImage, int64, error) {
	return c.inner.List(ctx, filter)
}

// FindByID retrieves an image, checking cache first then falling back to the database.
func (c *CachingImageRepository) FindByID(ctx context.Context, id uint) (*entity.UploadedImage, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.FindByID(ctx, id)
	}

	key := c.detailKey(id)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.UploadedImage
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort, completed records only)
	if out.Status == entity.StatusCompleted {
		if b, err := json.Marshal(out); err == nil {
			_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
		}
	}

	return out, nil
}

// FindLogs retrieves processing logs, checking cache first then falling back
// to the database. Logs are append-only during processing, so only logs of a
// record already resolved to completed would be safe to cache; since this
// method cannot see the record status cheaply, entries are cached with the
// short TTL and invalidated on delete.
func (c *CachingImageRepository) FindLogs(ctx context.Context, imageID uint) ([]entity.ProcessingLog, error) {
	if c.rdb == nil {
		return c.inner.FindLogs(ctx, imageID)
	}

	key := c.logsKey(imageID)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.ProcessingLog
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.FindLogs(ctx, imageID)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// Delete removes the record and invalidates its cache entries.
func (c *CachingImageRepository) Delete(ctx context.Context, id uint) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	// Best effort: don't fail if cache deletion fails
	_ = c.rdb.Del(ctx, c.detailKey(id), c.logsKey(id)).Err()
	return nil
}

// detailKey generates the cache key for a single image record.
func (c *CachingImageRepository) detailKey(id uint) string {
	return fmt.Sprintf("%s:detail:%d", c.namespace, id)
}

// logsKey generates the cache key for an image's processing logs.
func (c *CachingImageRepository) logsKey(imageID uint) string {
	return fmt.Sprintf("%s:logs:%d", c.namespace, imageID)
}
