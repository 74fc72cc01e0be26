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

	_ "github.com/noah-isme/hse-api/api/swagger"
	"github.com/noah-isme/hse-api/internal/handler"
	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/repository"
	"github.com/noah-isme/hse-api/internal/service"
	"github.com/noah-isme/hse-api/pkg/cache"
	"github.com/noah-isme/hse-api/pkg/config"
	"github.com/noah-isme/hse-api/pkg/database"
	"github.com/noah-isme/hse-api/pkg/jobs"
	"github.com/noah-isme/hse-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hse-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hse-api/pkg/middleware/requestid"
	"github.com/noah-isme/hse-api/pkg/notify"
	"github.com/noah-isme/hse-api/pkg/storage"
)

// @title HSE API
// @version 1.0.0
// @description Multi-tenant health, safety and environment management: risk assessments, incidents, investigations, trainings and reports.
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	riskRepo := repository.NewRiskAssessmentRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	investigationRepo := repository.NewInvestigationRepository(db)
	trainingRepo := repository.NewTrainingRepository(db)
	reportRepo := repository.NewReportRepository(db)
	layoutRepo := repository.NewLayoutRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Risks:          riskRepo,
		Incidents:      incidentRepo,
		Investigations: investigationRepo,
		Trainings:      trainingRepo,
		Cache:          cacheSvc,
		Metrics:        metricsSvc,
		Logger:         logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:           cfg.Dashboard.CacheTTL,
			ExpiringWithinDays: cfg.Dashboard.ExpiringWithinDays,
		},
	})

	var sender notify.Sender = notify.Noop{}
	if cfg.Notifications.Enabled {
		sender = notify.NewHTTPSender(cfg.Notifications, nil)
	}
	notificationSvc := service.NewNotificationService(sender, logr)
	notificationQueue := jobs.NewQueue("notifications", notificationSvc.Handle, jobs.QueueConfig{
		Workers:    2,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	notificationSvc.AttachQueue(notificationQueue)

	authSvc := service.NewAuthService(userRepo, companyRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	companySvc := service.NewCompanyService(companyRepo, userRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, validate, logr)
	riskSvc := service.NewRiskAssessmentService(riskRepo, notificationSvc, dashboardSvc, validate, logr).WithApprovalCounter(metricsSvc)
	incidentSvc := service.NewIncidentService(incidentRepo, dashboardSvc, validate, logr).WithCounter(metricsSvc)
	investigationSvc := service.NewInvestigationService(investigationRepo, dashboardSvc, validate, logr)
	trainingSvc := service.NewTrainingService(trainingRepo, dashboardSvc, validate, logr)
	hseReportSvc := service.NewHSEReportService(employeeRepo, trainingRepo, riskRepo, incidentRepo)
	layoutSvc := service.NewLayoutService(layoutRepo, cfg.Layouts.MaxBytes, logr)

	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(service.ExportSources{
		Risks:     riskSvc,
		Incidents: incidentSvc,
		Reports:   hseReportSvc,
	}, fileStore, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL}, logr)

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr).WithObserver(metricsSvc)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})

	for name, q := range map[string]*jobs.Queue{"notifications": notificationQueue, "reports": reportQueue} {
		if err := metricsSvc.RegisterQueue(name, q.Stats); err != nil {
			return fmt.Errorf("register %s queue metrics: %w", name, err)
		}
	}

	notificationQueue.Start(ctx)
	defer notificationQueue.Stop()
	if cfg.Reports.Enabled {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		if n := reportSvc.RecoverPendingJobs(ctx); n > 0 {
			logr.Info("re-queued pending export jobs", zap.Int("count", n))
		}
		reportSvc.StartCleanup(ctx)
	}

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

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
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

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		logger:         logr,
		auditLog:       userRepo,
		companies:      companyRepo,
		auth:           authSvc,
		authHandler:    handler.NewAuthHandler(authSvc),
		company:        handler.NewCompanyHandler(companySvc),
		user:           handler.NewUserHandler(userSvc),
		department:     handler.NewDepartmentHandler(departmentSvc),
		employee:       handler.NewEmployeeHandler(employeeSvc),
		risk:           handler.NewRiskAssessmentHandler(riskSvc),
		incident:       handler.NewIncidentHandler(incidentSvc),
		investigation:  handler.NewInvestigationHandler(investigationSvc),
		training:       handler.NewTrainingHandler(trainingSvc),
		reports:        handler.NewHSEReportHandler(hseReportSvc),
		exports:        handler.NewExportHandler(reportSvc),
		dashboard:      handler.NewDashboardHandler(dashboardSvc),
		layout:         handler.NewLayoutHandler(layoutSvc, int64(cfg.Layouts.MaxBytes)),
		metrics:        metricsHandler,
		exportsEnabled: cfg.Reports.Enabled,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routeDeps struct {
	logger    *zap.Logger
	auditLog  *repository.UserRepository
	companies *repository.CompanyRepository
	auth      *service.AuthService

	authHandler   *handler.AuthHandler
	company       *handler.CompanyHandler
	user          *handler.UserHandler
	department    *handler.DepartmentHandler
	employee      *handler.EmployeeHandler
	risk          *handler.RiskAssessmentHandler
	incident      *handler.IncidentHandler
	investigation *handler.InvestigationHandler
	training      *handler.TrainingHandler
	reports       *handler.HSEReportHandler
	exports       *handler.ExportHandler
	dashboard     *handler.DashboardHandler
	layout        *handler.LayoutHandler
	metrics       *handler.MetricsHandler

	exportsEnabled bool
}

func registerRoutes(api *gin.RouterGroup, d routeDeps) {
	audit := func(resource string) gin.HandlerFunc {
		return middleware.Audit(d.auditLog, resource, d.logger)
	}
	managers := middleware.RequireRoles(middleware.Managers...)

	api.POST("/auth/login", d.authHandler.Login)
	api.POST("/auth/refresh", d.authHandler.Refresh)

	authed := api.Group("", middleware.JWT(d.auth))
	authed.POST("/auth/logout", d.authHandler.Logout)
	authed.PUT("/auth/password", d.authHandler.ChangePassword)
	authed.GET("/auth/me", d.authHandler.Me)
	authed.GET("/admin/metrics", middleware.SuperAdminOnly(), d.metrics.System)

	companies := authed.Group("/companies", middleware.SuperAdminOnly(), audit("company"))
	companies.GET("", d.company.List)
	companies.GET("/:id", d.company.Get)
	companies.POST("", d.company.Create)
	companies.PUT("/:id", d.company.Update)
	companies.PUT("/:id/subscription", d.company.UpdateSubscription)
	companies.DELETE("/:id", d.company.Deactivate)

	tenant := authed.Group("", middleware.TenantScope(d.companies))

	users := tenant.Group("/users", middleware.RequireRoles(models.RoleAdmin), audit("user"))
	users.GET("", d.user.List)
	users.GET("/:id", d.user.Get)
	users.POST("", d.user.Create)
	users.PUT("/:id", d.user.Update)
	users.DELETE("/:id", d.user.Deactivate)

	departments := tenant.Group("/departments", audit("department"))
	departments.GET("", d.department.List)
	departments.POST("", managers, d.department.Create)
	departments.PUT("/:id", managers, d.department.Update)
	departments.DELETE("/:id", managers, d.department.Delete)

	employees := tenant.Group("/employees", audit("employee"))
	employees.GET("", d.employee.List)
	employees.GET("/:id", d.employee.Get)
	employees.POST("", managers, d.employee.Create)
	employees.PUT("/:id", managers, d.employee.Update)
	employees.DELETE("/:id", managers, d.employee.Deactivate)

	risks := tenant.Group("/risk-assessments", audit("risk_assessment"))
	risks.GET("", d.risk.List)
	risks.GET("/matrix", d.risk.Matrix)
	risks.GET("/:id", d.risk.Get)
	risks.POST("", managers, d.risk.Create)
	risks.PUT("/:id", managers, d.risk.Update)
	risks.DELETE("/:id", managers, d.risk.Delete)
	risks.POST("/:id/approve", managers, d.risk.Approve)
	risks.PATCH("/:id/measures/status", d.risk.UpdateMeasureStatus)

	incidents := tenant.Group("/incidents", audit("incident"))
	incidents.GET("", d.incident.List)
	incidents.GET("/:id", d.incident.Get)
	incidents.POST("", d.incident.Create)
	incidents.PUT("/:id", managers, d.incident.Update)
	incidents.POST("/:id/close", managers, d.incident.Close)
	incidents.DELETE("/:id", managers, d.incident.Delete)

	investigations := tenant.Group("/investigations", middleware.RequireAddon(models.AddonInvestigations), audit("investigation"))
	investigations.GET("", d.investigation.List)
	investigations.GET("/:id", d.investigation.Get)
	investigations.POST("", managers, d.investigation.Create)
	investigations.PUT("/:id", managers, d.investigation.Update)
	investigations.DELETE("/:id", managers, d.investigation.Delete)

	trainings := tenant.Group("/trainings", middleware.RequireAddon(models.AddonTrainings), audit("training"))
	trainings.GET("", d.training.List)
	trainings.POST("", managers, d.training.Create)
	trainings.PUT("/:id", managers, d.training.Update)
	trainings.DELETE("/:id", managers, d.training.Delete)

	reports := tenant.Group("/reports")
	reports.GET("/trainings-by-employee", middleware.RequireAddon(models.AddonTrainings), d.reports.TrainingsByEmployee)
	reports.GET("/risks-by-department", d.reports.RisksByDepartment)
	reports.GET("/incidents-by-status", d.reports.IncidentsByStatus)

	tenant.GET("/dashboard", d.dashboard.Summary)
	tenant.GET("/layouts/:key", d.layout.Get)
	tenant.PUT("/layouts/:key", d.layout.Put)

	if d.exportsEnabled {
		exports := tenant.Group("/exports", middleware.RequireAddon(models.AddonExports))
		exports.POST("", d.exports.Create)
		exports.GET("/jobs/:id", d.exports.Status)
		// The signed token is the credential.
		api.GET("/exports/:token", d.exports.Download)
	}
}
