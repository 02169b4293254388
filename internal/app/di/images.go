package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	historyadapters "lpr_backend/internal/feature/history/adapters"
	"lpr_backend/internal/feature/history/usecase"
	"lpr_backend/internal/platform/cache"
)

// cacheTTL is how long completed image records stay cached in Redis.
const cacheTTL = 5 * time.Minute

// NewImageRepository creates an ImageRepository implementation.
// If Redis is available, reads are served through a caching decorator.
func NewImageRepository(rdb *redis.Client, db *gorm.DB) usecase.ImageRepository {
	repo := historyadapters.NewImageRepository(db)
	if rdb != nil {
		return cache.NewCachingImageRepository(rdb, cacheTTL, repo, "images")
	}
	return repo
}
