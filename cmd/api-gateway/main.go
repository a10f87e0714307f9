package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-sync-api/api/swagger"
	"github.com/noah-isme/sma-sync-api/internal/docstore"
	"github.com/noah-isme/sma-sync-api/internal/handler"
	"github.com/noah-isme/sma-sync-api/internal/identity"
	"github.com/noah-isme/sma-sync-api/internal/middleware"
	"github.com/noah-isme/sma-sync-api/internal/models"
	"github.com/noah-isme/sma-sync-api/internal/repository"
	"github.com/noah-isme/sma-sync-api/internal/service"
	"github.com/noah-isme/sma-sync-api/pkg/cache"
	"github.com/noah-isme/sma-sync-api/pkg/config"
	"github.com/noah-isme/sma-sync-api/pkg/database"
	"github.com/noah-isme/sma-sync-api/pkg/export"
	"github.com/noah-isme/sma-sync-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-sync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-sync-api/pkg/middleware/requestid"
)

// @title SMA Sync API
// @version 1.0.0
// @description Identity provisioning and relationship synchronization for the school dashboard
// @BasePath /api/v1
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

	docDB, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect document database", "error", err)
	}
	defer docDB.Close()

	// Dedicated connection: the identity store is a separate system, no
	// transaction ever spans both.
	identityDB, err := database.NewPostgres(cfg.IdentityDB)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect identity database", "error", err)
	}
	defer identityDB.Close()

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		}
	}

	store := docstore.NewInstrumentedStore(docstore.NewPostgresStore(docDB), metrics)
	accounts := identity.NewPostgresStore(identityDB)

	resolver := service.NewReferenceResolver(store)
	conflicts := service.NewConflictDetector(store)
	synchronizer := service.NewRelationshipSynchronizer(store, resolver, logr)
	provisioner := service.NewIdentityProvisioner(accounts, store, cfg.Provisioning.LoginDomain, cfg.Provisioning.MinNaturalKeyLen, logr, metrics)

	authSvc := service.NewAuthService(accounts, store, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "sma-sync-api",
	})
	teacherSvc := service.NewTeacherService(provisioner, store, nil, logr)
	studentSvc := service.NewStudentService(provisioner, store, resolver, nil, logr)
	classSvc := service.NewClassService(store, synchronizer, nil, logr)
	scheduleSvc := service.NewScheduleService(store, resolver, conflicts, cacheSvc, nil, logr)
	subjectSvc := service.NewSubjectService(store, store, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	classHandler := handler.NewClassHandler(classSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, export.NewCSVExporter(), export.NewPDFExporter())
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := docDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "document store unreachable"})
			return
		}
		if err := identityDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "identity store unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/auth/me", authHandler.Me)

	adminOnly := middleware.RBAC(models.RoleAdmin)

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.POST("", adminOnly, teacherHandler.Create)
		teachers.PUT("/:id", middleware.RBAC(models.RoleAdmin, "SELF"), teacherHandler.Update)
		teachers.DELETE("/:id", adminOnly, teacherHandler.Delete)
	}

	students := protected.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.POST("", adminOnly, studentHandler.Create)
		students.PUT("/:id", adminOnly, studentHandler.Update)
		students.DELETE("/:id", adminOnly, studentHandler.Delete)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", classHandler.List)
		classes.GET("/:id", classHandler.Get)
		classes.POST("", adminOnly, classHandler.Create)
		classes.PUT("/:id", adminOnly, classHandler.Update)
		classes.POST("/:id/homeroom", adminOnly, classHandler.AssignHomeroom)
		classes.DELETE("/:id", adminOnly, classHandler.Delete)
	}

	schedules := protected.Group("/schedules")
	{
		schedules.GET("", scheduleHandler.List)
		if cfg.Exports.Enabled {
			schedules.GET("/export", scheduleHandler.Export)
		}
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.POST("", adminOnly, scheduleHandler.Create)
		schedules.PUT("/:id", adminOnly, scheduleHandler.Update)
		schedules.DELETE("/:id", adminOnly, scheduleHandler.Delete)
	}

	subjects := protected.Group("/subjects")
	{
		subjects.GET("", subjectHandler.List)
		subjects.GET("/:id", subjectHandler.Get)
		subjects.POST("", adminOnly, subjectHandler.Create)
		subjects.DELETE("/:id", adminOnly, subjectHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
