package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/talentflow/ats-offer-api/api/swagger"
	"github.com/talentflow/ats-offer-api/internal/handler"
	"github.com/talentflow/ats-offer-api/internal/middleware"
	"github.com/talentflow/ats-offer-api/internal/repository"
	"github.com/talentflow/ats-offer-api/internal/service"
	"github.com/talentflow/ats-offer-api/pkg/cache"
	"github.com/talentflow/ats-offer-api/pkg/config"
	"github.com/talentflow/ats-offer-api/pkg/database"
	"github.com/talentflow/ats-offer-api/pkg/logger"
	corsmiddleware "github.com/talentflow/ats-offer-api/pkg/middleware/cors"
	reqidmiddleware "github.com/talentflow/ats-offer-api/pkg/middleware/requestid"
)

// @title TalentFlow Offer API
// @version 1.0.0
// @description Offer acceptance, exclusivity and audit subsystem for the candidate pipeline
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The cache is an optimisation over the exclusivity lookup; the
		// subsystem stays correct without it.
		logr.Sugar().Warnw("redis unavailable, exclusivity cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applications := repository.NewApplicationRepository(db)
	auditEntries := repository.NewAuditRepository(db)
	exclusivityCache := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditEntries, applications, cfg.Audit, metrics, logr)
	validationSvc := service.NewValidationService(applications, auditSvc, cfg.Validation, logr)
	notifications := service.NewNotificationService(cfg.Notifications, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	acceptanceSvc := service.NewAcceptanceService(applications, auditSvc, validationSvc, logr,
		service.WithExclusivityCache(exclusivityCache, cfg.Acceptance.ExclusivityCacheTTL),
		service.WithNotificationDispatcher(notifications),
		service.WithAcceptanceMetrics(metrics),
	)

	archiveSvc, err := service.NewExportArchiveService(auditSvc, cfg.Exports, logr)
	if err != nil {
		logr.Sugar().Warnw("export archive unavailable", "error", err)
		archiveSvc = nil
	}
	if archiveSvc != nil {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := archiveSvc.Cleanup(); err != nil {
						logr.Sugar().Warnw("export cleanup failed", "error", err)
					}
				}
			}
		}()
	}

	acceptanceHandler := handler.NewAcceptanceHandler(acceptanceSvc)
	auditHandler := handler.NewAuditHandler(auditSvc, archiveSvc)
	validationHandler := handler.NewValidationHandler(validationSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Actor())
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	applicationsGroup := r.Group("/applications")
	{
		applicationsGroup.POST("/:id/accept", acceptanceHandler.Accept)
		applicationsGroup.POST("/:id/exclusive", acceptanceHandler.MarkExclusive)
		applicationsGroup.POST("/:id/validate", validationHandler.Validate)
		applicationsGroup.POST("/:id/validate-acceptance", validationHandler.ValidateAcceptance)
		applicationsGroup.GET("/:id/inconsistencies", validationHandler.Inconsistencies)
		applicationsGroup.GET("/:id/integrity-report", validationHandler.IntegrityReport)
		applicationsGroup.GET("/:id/audit", auditHandler.Trail)
		applicationsGroup.GET("/:id/audit/export", auditHandler.Export)
		applicationsGroup.GET("/:id/audit/integrity", auditHandler.Integrity)
	}

	r.GET("/candidates/:id/exclusivity", acceptanceHandler.Exclusivity)
	r.GET("/audit/search", auditHandler.Search)
	r.GET("/audit/summary", auditHandler.Summary)
	r.GET("/audit/exports/download", auditHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
