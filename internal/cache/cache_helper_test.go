package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheManager(client), mr
}

type cachedCourse struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestCacheHelper_SetGet(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Course.Set(ctx, "id:1", cachedCourse{ID: 1, Title: "Go"}, time.Minute))
	assert.True(t, mr.Exists("course:id:1"))

	var got cachedCourse
	require.NoError(t, cm.Course.Get(ctx, "id:1", &got))
	assert.Equal(t, "Go", got.Title)

	err := cm.Course.Get(ctx, "id:2", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheHelper_Take(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.State.Set(ctx, "abc", map[string]string{"redirect": "/dashboard"}, time.Minute))

	var got map[string]string
	require.NoError(t, cm.State.Take(ctx, "abc", &got))
	assert.Equal(t, "/dashboard", got["redirect"])
	assert.False(t, mr.Exists("oauth_state:abc"))

	assert.ErrorIs(t, cm.State.Take(ctx, "abc", &got), ErrCacheNotFound)
}

func TestCacheHelper_NilClient(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	assert.False(t, cm.Enabled())
	assert.NoError(t, cm.Catalog.Set(ctx, "k", 1, time.Minute))
	var v int
	assert.ErrorIs(t, cm.Catalog.Get(ctx, "k", &v), ErrCacheNotAvailable)
	assert.ErrorIs(t, cm.HealthCheck(ctx), ErrCacheNotAvailable)

	calls := 0
	err := cm.Catalog.CacheOrExecute(ctx, "k", &v, time.Minute, func() (interface{}, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	var got cachedCourse
	err := cm.Course.CacheOrExecute(ctx, "id:7", &got, time.Minute, func() (interface{}, error) {
		return cachedCourse{ID: 7, Title: "Rust"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.ID)

	assert.Eventually(t, func() bool { return mr.Exists("course:id:7") }, time.Second, 10*time.Millisecond)

	fetchErr := errors.New("boom")
	err = cm.Course.CacheOrExecute(ctx, "id:8", &got, time.Minute, func() (interface{}, error) {
		return nil, fetchErr
	})
	assert.ErrorIs(t, err, fetchErr)
}

func TestInvalidateCourseCache(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Course.Set(ctx, "id:3", 1, time.Minute))
	require.NoError(t, cm.Course.Set(ctx, "id:4", 1, time.Minute))
	require.NoError(t, cm.Catalog.Set(ctx, "list:a", 1, time.Minute))
	require.NoError(t, cm.Catalog.Set(ctx, "latest:6", 1, time.Minute))
	require.NoError(t, cm.Ranking.Set(ctx, "all", 1, time.Minute))
	require.NoError(t, cm.Sitemap.Set(ctx, "xml", 1, time.Minute))

	InvalidateCourseCache(ctx, cm, 3)

	assert.False(t, mr.Exists("course:id:3"))
	assert.True(t, mr.Exists("course:id:4"))
	assert.False(t, mr.Exists("catalog:list:a"))
	assert.False(t, mr.Exists("catalog:latest:6"))
	assert.False(t, mr.Exists("ranking:all"))
	assert.False(t, mr.Exists("sitemap:xml"))
}
