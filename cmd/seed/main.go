// Package main mirrors the built-in course catalog into PostgreSQL and uploads resource files to S3.
package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/treppan-learn/backend/config"
	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/pkg/database"
	"github.com/treppan-learn/backend/pkg/redis"
	"github.com/treppan-learn/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	repo := catalog.NewRepository(pool)
	courses := catalog.NewDefaultFixtureProvider().Courses()
	for i, c := range courses {
		if err := repo.Upsert(ctx, i, c); err != nil {
			logger.Fatal("upsert course", zap.String("course_id", c.Summary.ID), zap.Error(err))
		}
		logger.Info("course seeded", zap.String("course_id", c.Summary.ID), zap.Int("lessons", len(c.Lessons)))
	}

	if cfg.AWS.S3Enabled() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ResourcesBucket:      cfg.AWS.ResourcesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		for _, c := range courses {
			uploadResources(ctx, s3Client, cfg.Catalog.ResourcesDir, c.Summary.ID, logger)
		}
	} else {
		logger.Info("AWS_S3_RESOURCES_BUCKET not set; skipping resource upload")
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable; catalog cache not invalidated", zap.Error(err))
		return
	}
	defer rdb.Close()
	if err := catalog.NewCachedProvider(repo, rdb.Client, cfg.Catalog.CacheTTL, logger).Invalidate(ctx); err != nil {
		logger.Warn("invalidate catalog cache", zap.Error(err))
	}
	logger.Info("seed complete", zap.Int("courses", len(courses)))
}

// uploadResources uploads <dir>/<courseID>/* to resources/<courseID>/ in the resources bucket.
func uploadResources(ctx context.Context, s3Client *storage.S3, dir, courseID string, logger *zap.Logger) {
	files, err := resourceFiles(dir, courseID)
	if err != nil {
		logger.Warn("list resource files", zap.String("course_id", courseID), zap.Error(err))
		return
	}
	for _, f := range files {
		key := storage.ResourceKey(courseID, f)
		if err := uploadFile(ctx, s3Client, f, key); err != nil {
			logger.Error("upload resource", zap.String("key", key), zap.Error(err))
			continue
		}
		logger.Info("resource uploaded", zap.String("key", key))
	}
}

func uploadFile(ctx context.Context, s3Client *storage.S3, file, key string) error {
	fh, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fh.Close()
	info, err := fh.Stat()
	if err != nil {
		return err
	}
	_, err = s3Client.Upload(ctx, s3Client.ResourcesBucket(), key, storage.ContentTypeForFilename(file), fh, info.Size())
	return err
}

// resourceFiles lists the regular files in <dir>/<courseID>, sorted. A missing directory yields none.
func resourceFiles(dir, courseID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, courseID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, filepath.Join(dir, courseID, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
