package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/models"
)

type countingProvider struct {
	Provider
	lessonCalls int
}

func (p *countingProvider) GetLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	p.lessonCalls++
	return p.Provider.GetLessons(ctx, courseID)
}

func newCache(t *testing.T) (*CachedProvider, *countingProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	inner := &countingProvider{Provider: NewDefaultFixtureProvider()}
	return NewCachedProvider(inner, client, time.Minute, zap.NewNop()), inner, mr
}

func TestCachedProviderReadThrough(t *testing.T) {
	p, inner, mr := newCache(t)
	ctx := context.Background()

	first, err := p.GetLessons(ctx, DefaultCourseID)
	require.NoError(t, err)
	second, err := p.GetLessons(ctx, DefaultCourseID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.lessonCalls)
	assert.True(t, mr.Exists("catalog:lessons:"+DefaultCourseID))
	assert.Equal(t, time.Minute, mr.TTL("catalog:lessons:"+DefaultCourseID))
}

func TestCachedProviderDoesNotCacheNotFound(t *testing.T) {
	p, inner, mr := newCache(t)
	ctx := context.Background()

	_, err := p.GetLessons(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.GetLessons(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 2, inner.lessonCalls)
	assert.False(t, mr.Exists("catalog:lessons:missing"))
}

func TestCachedProviderBypassesRedisFailure(t *testing.T) {
	p, inner, mr := newCache(t)
	mr.Close()

	lessons, err := p.GetLessons(context.Background(), DefaultCourseID)
	require.NoError(t, err)
	assert.Len(t, lessons, 6)
	assert.Equal(t, 1, inner.lessonCalls)
}

func TestCachedProviderInvalidate(t *testing.T) {
	p, inner, mr := newCache(t)
	ctx := context.Background()

	_, err := p.ListCourses(ctx)
	require.NoError(t, err)
	_, err = p.GetLessons(ctx, DefaultCourseID)
	require.NoError(t, err)
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, p.Invalidate(ctx))

	assert.False(t, mr.Exists("catalog:courses"))
	assert.True(t, mr.Exists("other:key"))
	_, err = p.GetLessons(ctx, DefaultCourseID)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.lessonCalls)
}

func TestCachedProviderContentKeepsStorageKeys(t *testing.T) {
	p, _, _ := newCache(t)

	content, err := p.GetContent(context.Background(), DefaultCourseID)
	require.NoError(t, err)
	res, ok := content.FindResource("slides")
	require.True(t, ok)
	assert.Equal(t, "resources/ai-fundamentals/slides.pdf", res.S3Key)
}
