package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/codepet/classroom-sync-api/api/swagger"
	"github.com/codepet/classroom-sync-api/internal/handler"
	"github.com/codepet/classroom-sync-api/internal/middleware"
	"github.com/codepet/classroom-sync-api/internal/repository"
	"github.com/codepet/classroom-sync-api/internal/schema"
	"github.com/codepet/classroom-sync-api/internal/service"
	"github.com/codepet/classroom-sync-api/pkg/cache"
	"github.com/codepet/classroom-sync-api/pkg/config"
	"github.com/codepet/classroom-sync-api/pkg/database"
	"github.com/codepet/classroom-sync-api/pkg/logger"
	corsmiddleware "github.com/codepet/classroom-sync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/codepet/classroom-sync-api/pkg/middleware/requestid"
)

// @title Classroom Sync API
// @version 1.0.0
// @description Snapshot ingestion, normalization and diff pipeline for classroom exports
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The pipeline degrades without Redis: no lease, no result cache.
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	archiveRepo := repository.NewSnapshotArchiveRepository(db)
	runRepo := repository.NewImportRunRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT.Secret)
	archiveSvc := service.NewSnapshotArchiveService(archiveRepo, logr)
	importSvc := service.NewImportService(
		schema.New(),
		classroomRepo,
		assignmentRepo,
		submissionRepo,
		enrollmentRepo,
		archiveSvc,
		runRepo,
		cacheRepo,
		cacheRepo,
		metricsSvc,
		service.ImportServiceConfig{
			LockEnabled:    cfg.Import.LockEnabled,
			LockTTL:        cfg.Import.LockTTL,
			ResultCacheTTL: cfg.Import.ResultCacheTTL,
		},
		logr,
	)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(runRepo, logr)
	}

	snapshotHandler := newSnapshotHandler(importSvc, exportSvc, cfg.Import.MaxBodyBytes)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		snapshots := api.Group("/snapshots")
		snapshots.POST("/validate", snapshotHandler.Validate)
		snapshots.POST("/diff", snapshotHandler.Diff)
		snapshots.POST("/import", snapshotHandler.Import)
		snapshots.GET("/status", snapshotHandler.Status)
		snapshots.GET("/imports", snapshotHandler.ListImports)
		snapshots.GET("/imports/export", snapshotHandler.ExportImports)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// newSnapshotHandler keeps the nil-exporter case out of the wiring above;
// a typed nil interface would defeat the handler's disabled check.
func newSnapshotHandler(importSvc *service.ImportService, exportSvc *service.ExportService, maxBody int64) *handler.SnapshotHandler {
	if exportSvc == nil {
		return handler.NewSnapshotHandler(importSvc, nil, maxBody)
	}
	return handler.NewSnapshotHandler(importSvc, exportSvc, maxBody)
}
