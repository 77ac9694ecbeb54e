package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-backend/config"
	deliveryHttp "clinic-backend/internal/delivery/http"
	"clinic-backend/internal/delivery/http/handler"
	"clinic-backend/internal/delivery/http/middleware"
	"clinic-backend/internal/delivery/websocket"
	"clinic-backend/internal/infrastructure/cache"
	"clinic-backend/internal/infrastructure/database"
	"clinic-backend/internal/repository"
	"clinic-backend/internal/service"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/clock"
	"clinic-backend/pkg/fcm"
	"clinic-backend/pkg/jwt"
	"clinic-backend/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	queue       *service.RedisJobQueue
	dispatcher  service.Dispatcher
	locker      service.ConsultationLocker
	rateLimiter *middleware.RateLimiter
}

// New creates a new App instance with all dependencies initialized
func New(ctx context.Context) (*App, error) {
	cfg, log, err := Setup()
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Log: log}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.IsDev())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	if err := app.initialize(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// Setup loads configuration and configures the shared logrus logger
func Setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.App.LogLevel)
	log.Info("Configuration loaded successfully")

	return cfg, log, nil
}

func setupLogger(level string) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
		log.Warnf("Unknown log level %q, falling back to info", level)
	}
	log.SetLevel(parsed)

	return log
}

// initialize wires repositories, services, usecases and the HTTP server
func (app *App) initialize(ctx context.Context) error {
	cfg, log := app.Config, app.Log

	transactor := database.NewTransactor(app.DB)
	clk := clock.New()
	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()

	// Repositories
	consultationRepo := repository.NewConsultationRepository()
	timeSlotRepo := repository.NewTimeSlotRepository()
	patientRepo := repository.NewPatientRepository()
	userRepo := repository.NewUserRepository()
	notificationRepo := repository.NewNotificationRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Services
	pusher, err := newPusher(ctx, cfg.FCM, log)
	if err != nil {
		return err
	}

	app.locker = service.NewConsultationLocker(log)
	app.queue = service.NewRedisJobQueue(app.RedisClient, clk, log, cfg.Queue.PollInterval, cfg.Queue.BatchSize)
	app.dispatcher = service.NewAsyncDispatcher(log, cfg.Dispatcher.MaxGoroutines, cfg.Dispatcher.TaskTimeout)

	hub := websocket.NewHub(clk)
	broadcaster := service.NewRealtimeBroadcaster(log, hub)
	notificationService := service.NewNotificationService(transactor, log, notificationRepo, userRepo, pusher, hub)
	auditService := service.NewAuditService(log, auditLogRepo)

	// Usecases
	monitor := usecase.NewWaitTimeMonitor(
		transactor, log, app.queue, usecase.DefaultWaitTimeRules(cfg.Monitor),
		consultationRepo, timeSlotRepo, userRepo, notificationService,
	)
	realTimeUsecase := usecase.NewRealTimeUsecase(transactor, log, clk, cfg.Realtime.PageSize, consultationRepo, timeSlotRepo, broadcaster)
	consultationUsecase := usecase.NewConsultationUsecase(
		transactor, log, clk, app.locker, app.dispatcher,
		consultationRepo, timeSlotRepo, patientRepo, userRepo,
		auditService, notificationService, monitor, realTimeUsecase,
	)
	acupunctureUsecase := usecase.NewAcupunctureUsecase(
		transactor, log, clk, app.locker, app.dispatcher,
		consultationRepo, auditService, monitor, realTimeUsecase,
	)
	medicineUsecase := usecase.NewMedicineUsecase(
		transactor, log, clk, app.locker, app.dispatcher,
		consultationRepo, auditService, monitor, realTimeUsecase,
	)
	notificationUsecase := usecase.NewNotificationUsecase(transactor, log, notificationRepo)
	auditLogUsecase := usecase.NewAuditLogUsecase(transactor, log, auditLogRepo, consultationRepo)

	monitor.Register(acupunctureUsecase)

	// Handlers
	consultationHandler := handler.NewConsultationHandler(consultationUsecase, acupunctureUsecase, medicineUsecase, customValidator)
	realTimeHandler := handler.NewRealTimeHandler(realTimeUsecase)
	notificationHandler := handler.NewNotificationHandler(notificationUsecase)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, app.RedisClient)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins)
	app.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	router := deliveryHttp.NewRouter(
		log, consultationHandler, realTimeHandler, notificationHandler, auditLogHandler,
		hub, authMiddleware, corsMiddleware, app.rateLimiter,
	)

	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

func newPusher(ctx context.Context, cfg config.FCMConfig, log *logrus.Logger) (fcm.Pusher, error) {
	if !cfg.Enabled {
		log.Info("Push notifications disabled")
		return fcm.Noop{}, nil
	}

	pusher, err := fcm.NewFirebasePusher(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize push notifications: %w", err)
	}
	log.Info("Push notifications enabled")
	return pusher, nil
}

// Serve starts the HTTP server and, when withWorker is set, the delayed job
// worker in the same process. It blocks until SIGINT or SIGTERM.
func (app *App) Serve(withWorker bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if withWorker {
		app.queue.Start(ctx)
	}

	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown()
}

// Work runs only the delayed job worker. Real-time pushes from this process
// reach devices through FCM; no websocket clients are attached here.
func (app *App) Work() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.queue.Start(ctx)
	app.Log.Info("Worker running")

	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if app.Server != nil {
		if err := app.Server.Shutdown(ctx); err != nil {
			app.Log.Errorf("Server forced to shutdown: %v", err)
		}
	}

	app.Close()

	app.Log.Info("Shutdown complete")
}

// Close stops background workers, then closes database and redis connections.
// Side tasks drain first so jobs they enqueue reach Redis before it closes.
func (app *App) Close() {
	if app.dispatcher != nil {
		app.dispatcher.Wait()
	}
	if app.queue != nil {
		app.queue.Stop()
	}
	if app.locker != nil {
		app.locker.Stop()
	}
	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}

	if app.DB != nil {
		if sqlDB, err := app.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				app.Log.Warnf("Failed to close database: %v", err)
			}
		}
	}

	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			app.Log.Warnf("Failed to close Redis: %v", err)
		}
	}
}

// Migrate applies (up) or rolls back (down) the embedded schema migrations
func Migrate(up bool, steps int) error {
	cfg, log, err := Setup()
	if err != nil {
		return err
	}

	migrator, err := database.NewMigrator(database.MigrationURL(cfg.DB), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Warnf("Failed to close migrator: %v", err)
		}
	}()

	if up {
		return migrator.Up()
	}
	return migrator.Down(steps)
}
