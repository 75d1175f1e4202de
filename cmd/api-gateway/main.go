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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/whatif-grades-api/api/swagger"
	"github.com/noah-isme/whatif-grades-api/internal/handler"
	internalmiddleware "github.com/noah-isme/whatif-grades-api/internal/middleware"
	"github.com/noah-isme/whatif-grades-api/internal/repository"
	"github.com/noah-isme/whatif-grades-api/internal/service"
	"github.com/noah-isme/whatif-grades-api/pkg/cache"
	"github.com/noah-isme/whatif-grades-api/pkg/config"
	"github.com/noah-isme/whatif-grades-api/pkg/database"
	"github.com/noah-isme/whatif-grades-api/pkg/export"
	"github.com/noah-isme/whatif-grades-api/pkg/gradebookapi"
	"github.com/noah-isme/whatif-grades-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/whatif-grades-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/whatif-grades-api/pkg/middleware/requestid"
)

// @title What-If Grades API
// @version 0.1.0
// @description Gradebook reconstruction and what-if grade calculation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const tokenIssuer = "whatif-grades-api"

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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	healthChecks := map[string]handler.HealthCheck{
		"postgres": db.PingContext,
	}

	var cacheRepo service.CacheRepository
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			healthChecks["redis"] = repo.Ping
		}
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ListingTTL, logr, cacheRepo != nil)
	validate := validator.New()

	scaleRepo := repository.NewGradingScaleRepository(db)
	scaleSvc, err := service.NewGradingScaleService(scaleRepo, cacheSvc, metricsSvc, validate, logr, service.GradingScaleServiceConfig{
		Enabled:      cfg.Grades.LetterGradesEnabled,
		DefaultScale: cfg.Grades.DefaultScale,
		CacheTTL:     cfg.Cache.ScaleTTL,
	})
	if err != nil {
		logr.Fatal("invalid grading scale configuration", zap.Error(err))
	}

	exportSvc := service.NewExportService(logr, export.NewCSVExporter(), export.NewPDFExporter())

	upstream := gradebookapi.New(gradebookapi.Config{
		BaseURL:  cfg.Upstream.BaseURL,
		Token:    cfg.Upstream.APIToken,
		Timeout:  cfg.Upstream.Timeout,
		PageSize: cfg.Upstream.PageSize,
		Observer: metricsSvc.ObserveUpstreamFetch,
	})

	gradebookSvc := service.NewGradebookService(upstream, scaleSvc, exportSvc, cacheSvc, metricsSvc, validate, logr, service.GradebookServiceConfig{
		Workers:      cfg.Resolver.Workers,
		WaitTimeout:  cfg.Resolver.WaitTimeout,
		PollInterval: cfg.Resolver.PollInterval,
		CourseTTL:    cfg.Resolver.CourseTTL,
		ListingTTL:   cfg.Cache.ListingTTL,
	})
	gradebookSvc.Start(ctx)
	defer gradebookSvc.Stop()

	tokenSvc := service.NewTokenService(cfg.JWT.Secret, tokenIssuer)

	gradebookHandler := handler.NewGradebookHandler(gradebookSvc)
	scaleHandler := handler.NewGradingScaleHandler(scaleSvc, gradebookSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, healthChecks)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenSvc))

	courses := api.Group("/courses")
	courses.POST("", gradebookHandler.Load)
	courses.GET("/:courseId", gradebookHandler.Get)
	courses.DELETE("/:courseId", gradebookHandler.Delete)
	courses.GET("/:courseId/detail", gradebookHandler.Detail)
	courses.GET("/:courseId/export", gradebookHandler.Export)
	courses.PUT("/:courseId/assignments/:assignmentId/what-if", gradebookHandler.SetWhatIf)
	courses.DELETE("/:courseId/assignments/:assignmentId/what-if", gradebookHandler.ClearWhatIf)
	courses.GET("/:courseId/assignments/:assignmentId/wait", gradebookHandler.WaitForPoints)
	courses.PUT("/:courseId/categories/:categoryId/method-override", gradebookHandler.SetMethodOverride)

	scales := api.Group("/grading-scales")
	scales.GET("/:courseId", scaleHandler.Get)
	scales.PUT("/:courseId", scaleHandler.Upsert)
	scales.DELETE("/:courseId", scaleHandler.Delete)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "cache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
