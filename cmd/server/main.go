package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yukikurage/task-tracker/internal/blob"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/handlers"
	"github.com/yukikurage/task-tracker/internal/lifecycle"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/media"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/router"
	"github.com/yukikurage/task-tracker/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	defer zapLogger.Sync()

	gin.SetMode(cfg.GinMode)

	manager := lifecycle.New(cfg.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Listen(context.Background())
	defer cancel()

	// Connect to database and run migrations
	db, err := database.Connect(cfg)
	if err != nil {
		zapLogger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("database handle unavailable", zap.Error(err))
	}
	manager.Register("database", func(ctx context.Context) error {
		return sqlDB.Close()
	})

	checks := map[string]handlers.HealthCheck{
		"database": sqlDB.PingContext,
	}

	// Redis backs the session store and the orphan ledger when either asks for it
	var redisClient *redis.Client
	if cfg.SessionStore == "redis" || cfg.OrphanLedger == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
		})
		pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.String("addr", cfg.RedisAddr()), zap.Error(err))
		}
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		zapLogger.Fatal("session store setup failed", zap.Error(err))
	}

	store, staticDir, err := newBlobStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("blob store setup failed", zap.String("backend", cfg.BlobBackend), zap.Error(err))
	}

	mediaManager := media.NewManager(store, media.Config{
		TaskImageBucket: cfg.TaskImageBucket,
		AvatarBucket:    cfg.AvatarBucket,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	}, zapLogger.Named("media"))

	var ledger media.OrphanLedger = media.NewMemoryLedger()
	if cfg.OrphanLedger == "redis" {
		ledger = media.NewRedisLedger(redisClient, media.DefaultLedgerKey)
	}

	cleaner := media.NewCleaner(mediaManager, ledger, zapLogger.Named("cleaner"), media.CleanerConfig{
		Workers:   cfg.CleanupWorkers,
		QueueSize: cfg.CleanupQueueSize,
	})
	cleaner.Start()
	manager.Register("cleaner", cleaner.Stop)

	janitor, err := media.NewJanitor(mediaManager, ledger, zapLogger.Named("janitor"), media.JanitorConfig{
		Interval:    cfg.JanitorInterval,
		MaxAttempts: cfg.JanitorMaxAttempts,
	})
	if err != nil {
		zapLogger.Fatal("janitor setup failed", zap.Error(err))
	}
	janitor.Start()
	manager.Register("janitor", func(ctx context.Context) error {
		janitor.Stop(ctx)
		return nil
	})

	// Initialize services
	authService := services.NewAuthService(repository.NewUserRepository(db))
	taskService := services.NewTaskService(repository.NewTaskRepository(db), cleaner, zapLogger.Named("tasks"))
	taskService.RequireOwnedImages(mediaManager)
	profileService := services.NewProfileService(repository.NewProfileRepository(db), mediaManager, cleaner, zapLogger.Named("profiles"))

	r := router.New(router.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		Task:    handlers.NewTaskHandler(taskService, mediaManager),
		Profile: handlers.NewProfileHandler(profileService),
		Pages:   handlers.NewPageHandler(),
		Health:  handlers.NewHealthHandler(checks),
	}, router.Options{
		SessionStore:   sessionStore,
		Resolver:       authService,
		Guard:          middleware.DefaultGuardConfig(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		StaticDir:      staticDir,
		Logger:         zapLogger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("server crashed", zap.Error(err))
			cancel()
		}
	}()
	manager.Register("http_server", server.Shutdown)

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "redis":
		s, err := redisStore.NewStore(
			10, // Redis pool size
			"tcp",
			cfg.RedisAddr(),
			"", // username (empty for default user)
			cfg.RedisPassword,
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = s
	case "cookie":
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE %q", cfg.SessionStore)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// newBlobStore returns the configured store and, for the disk backend, the directory to serve publicly.
func newBlobStore(cfg *config.Config, zapLogger *zap.Logger) (blob.Store, string, error) {
	switch cfg.BlobBackend {
	case "disk":
		store, err := blob.NewDiskStore(cfg.BlobDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return store, store.Root(), nil
	case "azure":
		store, err := blob.NewAzureStore(cfg.AzureConnectionString, zapLogger.Named("azblob"))
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		return nil, "", fmt.Errorf("unsupported BLOB_BACKEND %q", cfg.BlobBackend)
	}
}
