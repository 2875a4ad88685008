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
	"go.uber.org/zap"

	_ "github.com/noah-isme/lecture-diary-api/api/swagger"
	"github.com/noah-isme/lecture-diary-api/internal/handler"
	"github.com/noah-isme/lecture-diary-api/internal/repository"
	"github.com/noah-isme/lecture-diary-api/internal/router"
	"github.com/noah-isme/lecture-diary-api/internal/service"
	"github.com/noah-isme/lecture-diary-api/pkg/cache"
	"github.com/noah-isme/lecture-diary-api/pkg/config"
	"github.com/noah-isme/lecture-diary-api/pkg/database"
	"github.com/noah-isme/lecture-diary-api/pkg/jobs"
	"github.com/noah-isme/lecture-diary-api/pkg/logger"
	"github.com/noah-isme/lecture-diary-api/pkg/storage"
)

// @title Lecture Diary API
// @version 1.0.0
// @description Teacher lecture diary and leave management service.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": db}

	var catalog *service.CatalogCache
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			store := repository.NewCatalogStore(client, logr)
			defer store.Close() //nolint:errcheck
			catalog = service.NewCatalogCache(store, metricsSvc, cfg.Cache.CatalogTTL, logr)
			checks["redis"] = store
		}
	}

	auditSvc := service.NewAuditService(repository.NewAuditRepository(db), metricsSvc, logr)
	auditQueue := jobs.NewPool("audit", auditSvc.Handle, jobs.PoolConfig{
		Workers:     cfg.Leave.AuditWorkers,
		MaxAttempts: cfg.Leave.AuditRetries + 1,
		Logger:      logr,
	})
	auditQueue.Start(context.Background())
	auditSvc.UseQueue(auditQueue)

	validate := validator.New()

	users := repository.NewAccountRepository(db)
	teachers := repository.NewTeacherRepository(db)
	courses := repository.NewCourseRepository(db)
	subjects := repository.NewSubjectRepository(db)
	topics := repository.NewTopicRepository(db)
	holidays := repository.NewHolidayRepository(db)
	lectures := repository.NewLectureRepository(db)
	leaveTypes := repository.NewLeaveTypeRepository(db)
	leaves := repository.NewLeaveRepository(db)
	balances := repository.NewLeaveBalanceRepository(db)

	authSvc := service.NewAuthService(users, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lecture-diary-api",
	})
	teacherSvc := service.NewTeacherService(db, teachers, courses, auditSvc, validate, logr)
	curriculumSvc := service.NewCurriculumService(courses, subjects, topics, catalog, validate, logr)
	holidaySvc := service.NewHolidayService(holidays, catalog, validate, logr)
	lectureSvc := service.NewLectureService(lectures, teachers, subjects, topics, holidays, validate, logr)
	leaveTypeSvc := service.NewLeaveTypeService(leaveTypes, catalog, validate, logr)
	leaveSvc := service.NewLeaveService(db, leaves, leaveTypes, holidays, auditSvc, validate, logr)
	transitionSvc := service.NewLeaveTransitionService(db, leaves, leaveTypes, balances, auditSvc, metricsSvc, logr)
	balanceSvc := service.NewLeaveBalanceService(db, balances, auditSvc, metricsSvc, validate, logr)

	fileStore, err := storage.NewDiskStore(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(leaves, lectures, fileStore, signer, metricsSvc, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)
	go sweepExports(ctx, exportSvc, cfg.Exports.SignedURLTTL, logr)

	engine := router.New(router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Teachers:   handler.NewTeacherHandler(teacherSvc),
		Curriculum: handler.NewCurriculumHandler(curriculumSvc),
		Holidays:   handler.NewHolidayHandler(holidaySvc),
		Lectures:   handler.NewLectureHandler(lectureSvc),
		LeaveTypes: handler.NewLeaveTypeHandler(leaveTypeSvc),
		Leaves:     handler.NewLeaveHandler(leaveSvc, transitionSvc),
		Balances:   handler.NewLeaveBalanceHandler(balanceSvc),
		Reports:    handler.NewReportHandler(exportSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc, checks),
		Audit:      handler.NewAuditHandler(auditSvc),
	}, router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Auth:           authSvc,
		Audit:          auditSvc,
		Metrics:        metricsSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
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
	if err := auditQueue.Drain(shutdownCtx); err != nil {
		logr.Warn("audit backlog not fully flushed", zap.Error(err))
	}
}

// sweepExports deletes rendered reports once their download links can no longer be used.
func sweepExports(ctx context.Context, exports *service.ExportService, ttl time.Duration, logr *zap.Logger) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := exports.Cleanup(ttl); err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
