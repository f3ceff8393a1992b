// Package main runs the course playback HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/treppan-learn/backend/config"
	"github.com/treppan-learn/backend/internal/analytics"
	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/internal/emaillogs"
	"github.com/treppan-learn/backend/internal/middleware"
	"github.com/treppan-learn/backend/internal/realtime"
	"github.com/treppan-learn/backend/internal/sessionlog"
	"github.com/treppan-learn/backend/internal/sessions"
	"github.com/treppan-learn/backend/internal/waitlist"
	"github.com/treppan-learn/backend/pkg/database"
	"github.com/treppan-learn/backend/pkg/queue"
	"github.com/treppan-learn/backend/pkg/redis"
	"github.com/treppan-learn/backend/pkg/response"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	provider := newProvider(cfg, pool, rdb, logger)

	var presigner catalog.ResourcePresigner
	if cfg.AWS.S3Enabled() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ResourcesBucket:      cfg.AWS.ResourcesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			presigner = s3Client
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	defer redisPubSub.Close()
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Playback sessions: state fans out through the hub, lesson events go to the worker queue.
	sessionLogRepo := sessionlog.NewRepository(pool)
	registry := sessions.NewRegistry(provider, sessions.Options{
		DefaultCourseID: cfg.Catalog.DefaultCourseID,
		SeedProgress:    cfg.Catalog.SeedProgress,
		QueueSize:       cfg.Session.QueueSize,
		IdleTTL:         cfg.Session.IdleTTL,
	}, logger)
	registry.SetStateHandler(func(s sessions.Snapshot) {
		hub.Publish(s.SessionID, realtime.EventSessionState, s)
	})
	registry.SetLessonEventHandler(analytics.NewPublisher(jobQueue, logger).Publish)
	registry.SetLifecycle(sessions.Lifecycles{sessionlog.NewRecorder(sessionLogRepo, logger), hub})

	catalogHandler := catalog.NewHandler(provider, cfg.Catalog.DefaultCourseID, presigner, logger)
	sessionHandler := sessions.NewHandler(registry, logger)
	analyticsHandler := analytics.NewHandler(provider, analytics.NewRepository(pool), sessionLogRepo, logger)
	sessionLogHandler := sessionlog.NewHandler(sessionLogRepo)
	waitlistHandler := waitlist.NewHandler(waitlist.NewRepository(pool), jobQueue, logger)
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Catalog
	router.GET("/courses", catalogHandler.List)
	router.GET("/courses/:id", catalogHandler.Get)
	router.GET("/courses/:id/lessons", catalogHandler.Lessons)
	router.GET("/courses/:id/resources/:resourceId/download-url", catalogHandler.ResourceDownloadURL)
	router.GET("/courses/:id/analytics", analyticsHandler.GetByCourse)
	router.GET("/courses/:id/sessions", sessionLogHandler.ListByCourse)

	// Playback sessions
	router.POST("/sessions", sessionHandler.Open)
	router.GET("/sessions/:id", sessionHandler.Get)
	router.POST("/sessions/:id/actions", sessionHandler.Act)
	router.DELETE("/sessions/:id", sessionHandler.Close)

	// Landing page
	router.POST("/waitlist", waitlistHandler.Join)
	router.GET("/emails", emailLogsHandler.List)

	// WebSocket (session id in query)
	router.GET("/ws", realtime.ServeWs(hub, registry, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go registry.RunSweeper(sweepCtx, cfg.Session.SweepInterval)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("catalog", cfg.Catalog.Source))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	registry.CloseAll(shutdownCtx)
	logger.Info("server stopped")
}

// newProvider returns the catalog source selected by CATALOG_SOURCE.
// The Postgres catalog is read through the Redis cache.
func newProvider(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) catalog.Provider {
	if cfg.Catalog.Source == config.CatalogSourcePostgres {
		return catalog.NewCachedProvider(catalog.NewRepository(pool), rdb.Client, cfg.Catalog.CacheTTL, logger)
	}
	return catalog.NewDefaultFixtureProvider()
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
