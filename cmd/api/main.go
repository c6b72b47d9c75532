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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campushub/enrollment-api/api/swagger"
	"github.com/campushub/enrollment-api/internal/authz"
	"github.com/campushub/enrollment-api/internal/handler"
	"github.com/campushub/enrollment-api/internal/middleware"
	"github.com/campushub/enrollment-api/internal/repository"
	"github.com/campushub/enrollment-api/internal/service"
	"github.com/campushub/enrollment-api/pkg/cache"
	"github.com/campushub/enrollment-api/pkg/config"
	"github.com/campushub/enrollment-api/pkg/database"
	"github.com/campushub/enrollment-api/pkg/export"
	"github.com/campushub/enrollment-api/pkg/logger"
	corsmiddleware "github.com/campushub/enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/enrollment-api/pkg/middleware/requestid"
)

// @title CampusHub Enrollment API
// @version 1.0.0
// @description Multi-tenant enrollment lifecycle, promotion and student import service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The service degrades gracefully without Redis: stats are computed
		// on every request instead of served from cache.
		logr.Warn("redis unavailable, continuing without stats cache", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)

	// A nil redis client degrades to cache misses and no-op writes.
	statsCache := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	lookups := service.NewLookups(studentRepo, classRepo, yearRepo)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "campushub-enrollment-api",
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, lookups, schoolRepo, db, statsCache, userRepo, metricsSvc,
		export.NewPDFExporter(), cfg.Cache.StatsTTL, validate, logr)
	promotionSvc := service.NewPromotionService(enrollmentRepo, classRepo, lookups, db, statsCache, userRepo, metricsSvc, validate, logr)
	importSvc := service.NewImportService(userRepo, studentRepo, enrollmentRepo, classRepo, yearRepo, guardianRepo, db,
		statsCache, userRepo, metricsSvc, export.NewCSVExporter(), cfg.Import, validate, logr)
	yearSvc := service.NewAcademicYearService(yearRepo, userRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, lookups, userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, guardianRepo, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	promotionHandler := handler.NewPromotionHandler(promotionSvc)
	importHandler := handler.NewImportHandler(importSvc)
	yearHandler := handler.NewAcademicYearHandler(yearSvc)
	classHandler := handler.NewClassHandler(classSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
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
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
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

	imports := protected.Group("/students/import", middleware.RequireAction(authz.ActionStudentImport))
	imports.POST("", importHandler.Import)
	imports.POST("/validate", importHandler.Validate)

	school := protected.Group("/schools/:schoolId")

	enrollments := school.Group("/enrollments")
	enrollments.GET("", enrollmentHandler.List)
	enrollments.POST("", middleware.RequireAction(authz.ActionEnrollmentCreate), enrollmentHandler.Create)
	enrollments.GET("/stats", enrollmentHandler.Stats)
	enrollments.GET("/:id", enrollmentHandler.Get)
	enrollments.GET("/:id/certificate", enrollmentHandler.Certificate)
	transitions := enrollments.Group("/:id", middleware.RequireAction(authz.ActionEnrollmentTransition))
	transitions.POST("/activate", enrollmentHandler.Activate)
	transitions.POST("/complete", enrollmentHandler.Complete)
	transitions.POST("/drop", enrollmentHandler.Drop)
	transitions.POST("/repeat", enrollmentHandler.Repeat)
	transitions.POST("/suspend", enrollmentHandler.Suspend)

	promotions := school.Group("/promotions", middleware.RequireAction(authz.ActionPromotionExecute))
	promotions.POST("", promotionHandler.Promote)
	promotions.POST("/bulk", promotionHandler.BulkPromote)

	school.GET("/students", studentHandler.List)
	school.GET("/students/:id", studentHandler.Get)

	years := school.Group("/academic-years")
	years.GET("", yearHandler.List)
	years.GET("/current", yearHandler.Current)
	years.GET("/:id", yearHandler.Get)
	years.POST("", middleware.RequireAction(authz.ActionYearManage), yearHandler.Create)
	years.POST("/:id/current", middleware.RequireAction(authz.ActionYearManage), yearHandler.SetCurrent)

	classes := school.Group("/classes")
	classes.GET("", classHandler.List)
	classes.GET("/:id", classHandler.Get)
	classes.POST("", middleware.RequireAction(authz.ActionClassManage), classHandler.Create)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if err := statsCache.Close(); err != nil {
		logr.Warn("failed to close redis client", zap.Error(err))
	}
}
