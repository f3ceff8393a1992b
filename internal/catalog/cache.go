package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/models"
)

const (
	cachePrefix     = "catalog:"
	defaultCacheTTL = 5 * time.Minute
)

// CachedProvider serves catalog reads from Redis, falling back to the wrapped provider on a miss.
// Redis failures are logged and bypassed; they never fail a read.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps inner with a Redis read-through cache.
func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{inner: inner, client: client, ttl: ttl, logger: logger}
}

// ListCourses implements Provider.
func (p *CachedProvider) ListCourses(ctx context.Context) ([]models.CourseSummary, error) {
	var out []models.CourseSummary
	err := p.readThrough(ctx, cachePrefix+"courses", &out, func() (interface{}, error) {
		return p.inner.ListCourses(ctx)
	})
	return out, err
}

// GetCourse implements Provider.
func (p *CachedProvider) GetCourse(ctx context.Context, courseID string) (*models.CourseSummary, error) {
	var out models.CourseSummary
	err := p.readThrough(ctx, cachePrefix+"course:"+courseID, &out, func() (interface{}, error) {
		return p.inner.GetCourse(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLessons implements Provider.
func (p *CachedProvider) GetLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	var out []models.Lesson
	err := p.readThrough(ctx, cachePrefix+"lessons:"+courseID, &out, func() (interface{}, error) {
		return p.inner.GetLessons(ctx, courseID)
	})
	return out, err
}

// GetContent implements Provider. Content is not cached: resource storage keys are not part of
// its JSON form.
func (p *CachedProvider) GetContent(ctx context.Context, courseID string) (*models.CourseContent, error) {
	return p.inner.GetContent(ctx, courseID)
}

// Invalidate drops every cached catalog key.
func (p *CachedProvider) Invalidate(ctx context.Context) error {
	iter := p.client.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return p.client.Del(ctx, keys...).Err()
}

// readThrough decodes key into dst, or loads, stores and decodes the loaded value.
// Not-found results are not cached.
func (p *CachedProvider) readThrough(ctx context.Context, key string, dst interface{}, load func() (interface{}, error)) error {
	raw, err := p.client.Get(ctx, key).Bytes()
	if err == nil {
		if jerr := json.Unmarshal(raw, dst); jerr == nil {
			return nil
		}
		p.logger.Warn("catalog cache entry corrupt", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		p.logger.Warn("catalog cache get failed", zap.String("key", key), zap.Error(err))
	}

	v, err := load()
	if err != nil {
		return err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, key, raw, p.ttl).Err(); err != nil {
		p.logger.Warn("catalog cache set failed", zap.String("key", key), zap.Error(err))
	}
	return json.Unmarshal(raw, dst)
}
