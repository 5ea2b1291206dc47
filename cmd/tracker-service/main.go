package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"uploadtrack-backend/internal/domain"
	adminHandler "uploadtrack-backend/internal/handler/http/admin"
	filesHandler "uploadtrack-backend/internal/handler/http/files"
	webhookHandler "uploadtrack-backend/internal/handler/http/webhook"
	"uploadtrack-backend/internal/middleware"
	"uploadtrack-backend/internal/repository/cockroach"
	cleanupService "uploadtrack-backend/internal/service/cleanup"
	filesService "uploadtrack-backend/internal/service/files"
	webhookService "uploadtrack-backend/internal/service/webhook"
	"uploadtrack-backend/internal/uploadthing"
	"uploadtrack-backend/pkg/config"
	"uploadtrack-backend/pkg/database"
	"uploadtrack-backend/pkg/jwt"
	"uploadtrack-backend/pkg/logger"
	"uploadtrack-backend/pkg/metrics"
)

const gracefulShutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	if err := logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Setup viewer-token manager
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// 2. Connect to CockroachDB
	cockroachDB, err := database.NewCockroachDB(ctx, &database.CockroachConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		logger.Fatal("Failed to connect to CockroachDB", zap.Error(err))
	}
	defer cockroachDB.Close()

	logger.Info("Connected to CockroachDB")

	// 3. Connect to Redis
	redisDB, err := database.NewRedisDB(&database.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisDB.Close()

	logger.Info("Connected to Redis")

	// 4. Initialize repositories
	fileRepo := cockroach.NewFileRepository(cockroachDB.Pool)
	folderRuleRepo := cockroach.NewFolderRuleRepository(cockroachDB.Pool)
	configRepo := cockroach.NewConfigRepository(cockroachDB.Pool)

	// 5. Initialize services
	utClient := uploadthing.NewClient(cfg.UploadThing.RequestTimeout,
		uploadthing.WithDeleteEndpoint(cfg.UploadThing.DeleteEndpoint))

	filesSvc := filesService.NewService(fileRepo, folderRuleRepo, configRepo)
	cleanupSvc := cleanupService.NewService(fileRepo, configRepo, utClient)
	webhookSvc := webhookService.NewService(filesSvc, configRepo)

	// Seed the stored API key from the environment on first boot; a key
	// already in the store wins over the environment
	seedAPIKey(ctx, filesSvc, cfg.UploadThing.APIKey)

	// 6. Initialize metrics and handlers
	m := metrics.NewMetrics(cfg.Server.ServiceName)

	filesHdlr := filesHandler.NewHandler(filesSvc, m)
	webhookHdlr := webhookHandler.NewHandler(webhookSvc, m)
	adminHdlr := adminHandler.NewHandler(filesSvc, cleanupSvc, m)

	// 7. Setup Gin router
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.NewPrometheusMiddleware(m).Handler())

	router.GET("/health", func(c *gin.Context) {
		if err := cockroachDB.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.Server.ServiceName,
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", middleware.MetricsHandler())

	webhookLimiter := middleware.NewRateLimiter(redisDB.Client, 120, time.Minute)

	v1 := router.Group("/v1")
	{
		// Webhook entry point: authenticated by HMAC signature, not tokens
		v1.POST("/webhooks/uploadthing", webhookLimiter.Middleware(), webhookHdlr.HandleUploadThing)

		// Read paths: anonymous viewers see public files
		reads := v1.Group("")
		reads.Use(middleware.OptionalAuthMiddleware(jwtManager))
		{
			reads.GET("/files/:key", filesHdlr.Get)
			reads.GET("/files", filesHdlr.List)
		}

		// Write paths require a valid token
		writes := v1.Group("")
		writes.Use(middleware.AuthMiddleware(jwtManager))
		{
			writes.POST("/files", filesHdlr.Upsert)
			writes.DELETE("/files", filesHdlr.Delete)
			writes.PUT("/files/:key/access", filesHdlr.SetAccess)
			writes.PUT("/folders/:folder/access", filesHdlr.SetFolderAccess)
			writes.GET("/users/:user_id/usage", filesHdlr.UsageStats)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtManager))
		{
			admin.GET("/config", adminHdlr.GetConfig)
			admin.PUT("/config", adminHdlr.SetConfig)
			admin.POST("/cleanup", adminHdlr.RunCleanup)
		}
	}

	// 8. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("Tracker service starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// seedAPIKey merges the environment-supplied UploadThing key into the
// stored config when the store carries none
func seedAPIKey(ctx context.Context, filesSvc *filesService.Service, envKey string) {
	if envKey == "" {
		return
	}

	stored, err := filesSvc.GetConfig(ctx)
	if err != nil {
		logger.Warn("Failed to read stored config for API key seeding", zap.Error(err))
		return
	}
	if stored.HasAPIKey {
		return
	}

	if _, err := filesSvc.SetConfig(ctx, &domain.TrackerConfig{UploadthingAPIKey: &envKey}, false); err != nil {
		logger.Warn("Failed to seed stored API key", zap.Error(err))
		return
	}
	logger.Info("Seeded stored UploadThing API key from environment")
}
