package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/whistle-api/api/swagger"
	"github.com/noah-isme/whistle-api/internal/handler"
	"github.com/noah-isme/whistle-api/internal/middleware"
	"github.com/noah-isme/whistle-api/internal/repository"
	"github.com/noah-isme/whistle-api/internal/service"
	"github.com/noah-isme/whistle-api/pkg/cache"
	"github.com/noah-isme/whistle-api/pkg/config"
	"github.com/noah-isme/whistle-api/pkg/database"
	"github.com/noah-isme/whistle-api/pkg/jobs"
	"github.com/noah-isme/whistle-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/whistle-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/whistle-api/pkg/middleware/requestid"
	"github.com/noah-isme/whistle-api/pkg/storage"
)

// @title Whistle API
// @version 1.0.0
// @description Whistleblowing report intake and triage
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return err
		}
		logr.Info("migrations applied")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	store, err := newBlobStore(ctx, cfg.Attachments)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()
	policy := service.AccessPolicy{
		StrictOwnership: cfg.Reports.StrictOwnership,
		AdminSiteURL:    cfg.Reports.AdminSiteURL,
	}

	reports := repository.NewReportRepository(db)
	users := repository.NewUserRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)
	audit := service.NewAuditService(users, logr)
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	attachments := service.NewAttachmentService(store, reports, signer, policy, metrics, service.AttachmentConfig{
		MaxFileSize:  cfg.Attachments.MaxFileSizeBytes,
		MaxFiles:     cfg.Attachments.MaxFiles,
		AllowedMIMEs: cfg.Attachments.AllowedMIMEs,
	}, logr)

	purgeQueue := jobs.NewQueue("attachment-purge", attachments.HandlePurge, jobs.QueueConfig{
		Workers:    cfg.Purge.Workers,
		MaxRetries: cfg.Purge.MaxRetries,
		RetryDelay: cfg.Purge.RetryDelay,
		Logger:     logr,
		OnGiveUp:   attachments.PurgeGaveUp,
	})
	purgeQueue.Start(context.WithoutCancel(ctx))
	attachments.UseQueue(purgeQueue)

	auth := service.NewAuthService(users, audit, policy, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	lifecycle := service.NewLifecycleService(reports, attachments, cacheSvc, audit, metrics, policy, validate, logr)
	submissions := service.NewSubmissionService(reports, attachments, cacheSvc, audit, metrics, validate, logr)
	dashboards := service.NewDashboardService(reports, cacheSvc, metrics, cfg.Dashboard.CacheTTL, logr)
	exports := service.NewExportService(dashboards, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.BodyLimit(cfg.MaxRequestBytes))
	r.Use(middleware.RequestMeta())
	r.Use(middleware.WithResponseMeta())

	var root gin.IRouter = r
	if cfg.APIPrefix != "" {
		root = r.Group(cfg.APIPrefix)
	}
	handler.RegisterRoutes(root, handler.Handlers{
		Home:      handler.NewHomeHandler(policy),
		Auth:      handler.NewAuthHandler(auth, handler.CookieConfig{Secure: cfg.JWT.CookieSecure}),
		Reports:   handler.NewReportHandler(submissions, lifecycle, attachments),
		Dashboard: handler.NewDashboardHandler(dashboards, exports),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"database": db.PingContext,
			"cache":    cacheRepo.Ping,
		}),
	}, auth)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Attachments.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if err := purgeQueue.Stop(shutdownCtx); err != nil {
		logr.Warn("purge queue shutdown", zap.Error(err))
	}
	return nil
}

func newBlobStore(ctx context.Context, cfg config.AttachmentsConfig) (storage.BlobStore, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		s3, err := storage.NewS3Storage(cfg)
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.S3Bucket, err)
		}
		return s3, nil
	case config.StorageBackendLocal, "":
		return storage.NewLocalStorage(cfg.StorageDir)
	default:
		return nil, fmt.Errorf("unknown attachments backend %q", cfg.Backend)
	}
}
