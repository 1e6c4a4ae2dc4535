package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	createBookingHandler "github.com/m04kA/SMC-EduBookingService/internal/api/handlers/create_booking"
	deleteBookingHandler "github.com/m04kA/SMC-EduBookingService/internal/api/handlers/delete_booking"
	getBookingHandler "github.com/m04kA/SMC-EduBookingService/internal/api/handlers/get_booking"
	healthHandler "github.com/m04kA/SMC-EduBookingService/internal/api/handlers/health"
	listBookingsHandler "github.com/m04kA/SMC-EduBookingService/internal/api/handlers/list_bookings"
	paymentWebhookHandler "github.com/m04kA/SMC-EduBookingService/internal/api/handlers/payment_webhook"
	updateBookingHandler "github.com/m04kA/SMC-EduBookingService/internal/api/handlers/update_booking"
	"github.com/m04kA/SMC-EduBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-EduBookingService/internal/config"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/broker"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/cache/webhookevents"
	bookingRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/booking"
	courseRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/course"
	enrollmentRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/enrollment"
	"github.com/m04kA/SMC-EduBookingService/internal/infra/storage/migrations"
	paymentRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/payment"
	profileRepo "github.com/m04kA/SMC-EduBookingService/internal/infra/storage/profile"
	"github.com/m04kA/SMC-EduBookingService/internal/integrations/stripe"
	"github.com/m04kA/SMC-EduBookingService/internal/service/access"
	"github.com/m04kA/SMC-EduBookingService/internal/service/availability"
	bookingsService "github.com/m04kA/SMC-EduBookingService/internal/service/bookings"
	createBookingUC "github.com/m04kA/SMC-EduBookingService/internal/usecase/create_booking"
	reconcilePaymentUC "github.com/m04kA/SMC-EduBookingService/internal/usecase/reconcile_payment"
	updateBookingUC "github.com/m04kA/SMC-EduBookingService/internal/usecase/update_booking"
	"github.com/m04kA/SMC-EduBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-EduBookingService/pkg/logger"
	"github.com/m04kA/SMC-EduBookingService/pkg/metrics"
	"github.com/m04kA/SMC-EduBookingService/pkg/txmanager"
)

// eventPublisher публикация доменных событий с закрытием соединения
type eventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
	Close() error
}

// eventCache отметки об обработанных вебхуках
type eventCache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-EduBookingService...")

	// Метрики (nil, если выключены: все методы Metrics безопасны на nil)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	var wrappedDB *dbmetrics.DB
	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
		log.Info("Database metrics collection started")
	} else {
		wrappedDB = dbmetrics.Wrap(db, nil)
	}
	txManager := txmanager.NewTransactionManager(wrappedDB)

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := migrations.Migrate(migrateCtx, wrappedDB, txManager, log)
		cancel()
		if err != nil {
			log.Fatal("Failed to apply migrations: %v", err)
		}
	}

	// Репозитории
	bookingRepository := bookingRepo.NewRepository(wrappedDB)
	courseRepository := courseRepo.NewRepository(wrappedDB)
	profileRepository := profileRepo.NewRepository(wrappedDB)
	paymentRepository := paymentRepo.NewRepository(wrappedDB)
	enrollmentRepository := enrollmentRepo.NewRepository(wrappedDB)

	// Кэш обработанных вебхуков (только ускоряет повторы, источник истины в БД)
	var processedEvents eventCache = webhookevents.NopCache{}
	if cfg.Redis.Enabled {
		redisClient := webhookevents.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		defer redisClient.Close()

		cache := webhookevents.NewCache(redisClient, cfg.Redis.ProcessedEventTTLDuration())
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn("Redis unavailable, processed-event cache still enabled: %v", err)
		}
		cancel()
		processedEvents = cache
		log.Info("Processed-event cache enabled (redis=%s)", cfg.Redis.Address)
	}

	// Публикация доменных событий
	var publisher eventPublisher = broker.NopPublisher{}
	if cfg.Broker.Enabled {
		p, err := broker.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			log.Fatal("Failed to connect to broker: %v", err)
		}
		publisher = p
		log.Info("Event publishing enabled (exchange=%s)", cfg.Broker.Exchange)
	}

	// Сервисы
	scopeResolver := access.NewResolver(profileRepository)
	conflictChecker := availability.NewChecker(bookingRepository)
	bookingSvc := bookingsService.NewService(bookingRepository, scopeResolver, log)

	// Use cases
	createBookingUseCase := createBookingUC.NewUseCase(
		bookingRepository,
		courseRepository,
		conflictChecker,
		scopeResolver,
		txManager,
		metricsCollector,
		publisher,
		log,
	)
	updateBookingUseCase := updateBookingUC.NewUseCase(
		bookingRepository,
		courseRepository,
		conflictChecker,
		scopeResolver,
		txManager,
		metricsCollector,
		publisher,
		log,
	)
	reconcilePaymentUseCase := reconcilePaymentUC.NewUseCase(
		paymentRepository,
		enrollmentRepository,
		courseRepository,
		processedEvents,
		txManager,
		metricsCollector,
		publisher,
		log,
	)

	// Handlers
	listBookings := listBookingsHandler.NewHandler(bookingSvc, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	deleteBooking := deleteBookingHandler.NewHandler(bookingSvc, log)
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	updateBooking := updateBookingHandler.NewHandler(updateBookingUseCase, log)
	paymentWebhook := paymentWebhookHandler.NewHandler(
		stripe.NewParser(cfg.Payments.WebhookSecret, cfg.Payments.ToleranceDuration()),
		reconcilePaymentUseCase,
		paymentWebhookHandler.Options{
			SignatureHeader: cfg.Payments.SignatureHeader,
			MaxBodyBytes:    cfg.Payments.MaxBodyBytes,
			Timeout:         cfg.Payments.WebhookTimeoutDuration(),
		},
		log,
	)
	health := healthHandler.NewHandler(wrappedDB, log)

	var rps float64
	if cfg.RateLimit.Enabled {
		rps = cfg.RateLimit.RPS
	}
	limiter := middleware.NewRateLimiter(rps, cfg.RateLimit.Burst)
	stopLimiterCh := make(chan struct{})
	go limiter.RunCleanup(time.Minute, stopLimiterCh)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID(log))

	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/health", health.Handle).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (подлинность проверяется подписью провайдера)
	// ============================================================

	webhooks := api.PathPrefix("/payments").Subrouter()
	webhooks.Use(limiter.Middleware)
	webhooks.HandleFunc("/webhook", paymentWebhook.Handle).Methods(http.MethodPost)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID и X-User-Role)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)
	protected.Use(limiter.Middleware)

	protected.HandleFunc("/bookings", listBookings.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}", updateBooking.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/bookings/{bookingId}", deleteBooking.Handle).Methods(http.MethodDelete)

	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	if err := publisher.Close(); err != nil {
		log.Warn("Failed to close broker connection: %v", err)
	}

	// Останавливаем сбор метрик connection pool и очистку лимитера
	close(stopMetricsCh)
	close(stopLimiterCh)

	log.Info("Server stopped gracefully")
}
