package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and only logs failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", helper.GetCacheKey(pattern))
	}
}

// SafeDelete deletes keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateCourseCache drops everything derived from course content:
// the course detail, every catalog page, the ranking and the sitemap.
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID uint) {
	if courseID > 0 {
		SafeDelete(ctx, cm.Course,
			fmt.Sprintf("id:%d", courseID),
			fmt.Sprintf("outline:%d", courseID))
	}
	SafeInvalidatePattern(ctx, cm.Catalog, "*")
	SafeInvalidatePattern(ctx, cm.Ranking, "*")
	SafeInvalidatePattern(ctx, cm.Sitemap, "*")
}

// InvalidateRankingCache drops the cached ranking after progress changes
func InvalidateRankingCache(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Ranking, "*")
}
