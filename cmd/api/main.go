package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/api"
	"github.com/wms-platform/fulfillment-service/internal/api/handlers"
	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/internal/config"
	"github.com/wms-platform/fulfillment-service/internal/domain"
	mongoRepo "github.com/wms-platform/fulfillment-service/internal/infrastructure/mongodb"
	redisinfra "github.com/wms-platform/fulfillment-service/internal/infrastructure/redis"
	temporalinfra "github.com/wms-platform/fulfillment-service/internal/infrastructure/temporal"
	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/contracts/openapi"
	"github.com/wms-platform/fulfillment-service/pkg/idempotency"
	"github.com/wms-platform/fulfillment-service/pkg/kafka"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
	"github.com/wms-platform/fulfillment-service/pkg/mongodb"
	"github.com/wms-platform/fulfillment-service/pkg/outbox"
	outboxmongo "github.com/wms-platform/fulfillment-service/pkg/outbox/mongodb"
	pkgtemporal "github.com/wms-platform/fulfillment-service/pkg/temporal"
	"github.com/wms-platform/fulfillment-service/pkg/tracing"
)

type mongoClient interface {
	Database() *mongo.Database
	Client() *mongo.Client
	Close(context.Context) error
	HealthCheck(context.Context) error
}

type outboxPublisher interface {
	Start(context.Context) error
	Stop() error
}

var newMongoClient = func(ctx context.Context, cfg *mongodb.Config) (mongoClient, error) {
	client, err := mongodb.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var newOutboxPublisher = func(repo outbox.Repository, producer outbox.EventPublisher, logger *logging.Logger, m *metrics.Metrics, cfg *outbox.PublisherConfig) outboxPublisher {
	return outbox.NewPublisher(repo, producer, logger, m, cfg)
}

var loadConfig = config.Load

var newMetrics = metrics.New

var initTracing = tracing.Initialize

var startHTTPServer = func(srv *http.Server) error {
	return srv.ListenAndServe()
}

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), signalCh); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh <-chan os.Signal) error {
	cfg, err := loadConfig()
	if err != nil {
		logging.New(logging.DefaultConfig("fulfillment-service")).WithError(err).Error("Failed to load configuration")
		return err
	}
	serviceName := cfg.Service.Name

	// Setup logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(cfg.Service.LogLevel)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment API", "version", cfg.Service.Version, "environment", cfg.Service.Environment)

	// Initialize OpenTelemetry tracing
	tracerProvider, err := initTracing(ctx, &tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", cfg.Tracing.Enabled, "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := newMetrics(metrics.DefaultConfig(serviceName))

	// Rate card
	schedule := domain.DefaultFeeSchedule()
	if cfg.RateCardFile != "" {
		schedule, err = config.LoadFeeSchedule(cfg.RateCardFile)
		if err != nil {
			logger.WithError(err).Error("Failed to load rate card", "file", cfg.RateCardFile)
			return err
		}
		logger.Info("Rate card loaded", "file", cfg.RateCardFile)
	}

	// Initialize MongoDB
	mongoClient, err := newMongoClient(ctx, &mongodb.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
		MinPoolSize:    mongodb.DefaultConfig().MinPoolSize,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer mongoClient.Close(context.Background())
	logger.Info("Connected to MongoDB", "database", cfg.Mongo.Database)

	db := mongoClient.Database()
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceFulfillment)

	deps := application.Dependencies{
		Products:       mongoRepo.NewProductRepository(db),
		Inventory:      mongoRepo.NewInventoryRepository(db, eventFactory),
		Orders:         mongoRepo.NewOrderRepository(db, eventFactory),
		Inbound:        mongoRepo.NewInboundRequestRepository(db, eventFactory),
		Tx:             mongodb.NewTxManager(mongoClient.Client()),
		Schedule:       schedule,
		InboundOptions: domain.InboundOptions{AllowDirectCompletion: cfg.Lifecycle.AllowDirectInboundCompletion},
		Logger:         logger,
		Metrics:        m,
		Options:        application.Options{LockWait: cfg.Redis.LockWait},
	}

	// Redis locking and product cache
	if cfg.Redis.Enabled {
		redisClient, err := redisinfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis", "addr", cfg.Redis.Addr)
			return err
		}
		defer redisClient.Close()

		deps.Locker = redisinfra.NewLocker(redisClient, cfg.Redis.LockTTL, logger)
		deps.Products = redisinfra.NewProductCache(deps.Products, redisClient, cfg.Redis.ProductCacheTTL, logger)
		logger.Info("Redis locking enabled", "addr", cfg.Redis.Addr, "lockTtl", cfg.Redis.LockTTL)
	} else {
		logger.Warn("Redis disabled, locks are held in process")
	}

	// Temporal pickup scheduling
	if cfg.Temporal.Enabled {
		temporalClient, err := pkgtemporal.NewClient(ctx, &pkgtemporal.Config{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Identity:  serviceName,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Temporal", "hostPort", cfg.Temporal.HostPort)
			return err
		}
		defer temporalClient.Close()

		deps.Pickups = temporalinfra.NewPickupScheduler(temporalClient, cfg.Temporal.TaskQueue,
			cfg.Temporal.PickupTimeout, cfg.Temporal.ReceiptTimeout)
		logger.Info("Temporal pickup scheduling enabled", "taskQueue", cfg.Temporal.TaskQueue)
	}

	// Outbox relay
	outboxRepo := outboxmongo.NewOutboxRepository(db)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(&kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			ClientID:     cfg.Kafka.ClientID,
			BatchSize:    kafka.DefaultConfig().BatchSize,
			BatchTimeout: kafka.DefaultConfig().BatchTimeout,
			RequiredAcks: kafka.DefaultConfig().RequiredAcks,
			WriteTimeout: kafka.DefaultConfig().WriteTimeout,
		}, logger, m)
		defer producer.Close()

		publisher := newOutboxPublisher(
			outboxRepo,
			kafka.NewCircuitBreakerProducer(producer, logger, m),
			logger,
			m,
			&outbox.PublisherConfig{
				PollInterval: cfg.Outbox.PollInterval,
				BatchSize:    cfg.Outbox.BatchSize,
			},
		)
		if err := publisher.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start outbox publisher")
			return err
		}
		defer func() {
			if err := publisher.Stop(); err != nil {
				logger.WithError(err).Warn("Failed to stop outbox publisher")
			}
		}()
		logger.Info("Outbox publisher started", "brokers", cfg.Kafka.Brokers)
	} else {
		logger.Warn("Kafka disabled, events stay in the outbox")
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go cleanupOutbox(cleanupCtx, outboxRepo, cfg.Outbox.Retention, logger)

	var keys idempotency.KeyRepository
	if cfg.Idempotency.Enabled {
		keyRepo := idempotency.NewMongoKeyRepository(db)
		if err := keyRepo.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to create idempotency indexes")
		}
		keys = keyRepo
	}

	router, err := newRouter(cfg, deps, keys, m, logger, mongoClient.HealthCheck)
	if err != nil {
		logger.WithError(err).Error("Failed to build router")
		return err
	}

	// Start server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		if err := startHTTPServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", srv.Addr)

	// Wait for interrupt signal
	<-signalCh
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}

// newRouter builds the gin engine serving the API, health and metrics.
// A nil keys repository disables Idempotency-Key handling.
func newRouter(cfg *config.Config, deps application.Dependencies, keys idempotency.KeyRepository, m *metrics.Metrics, logger *logging.Logger, ready func(context.Context) error) (*gin.Engine, error) {
	serviceName := cfg.Service.Name
	if cfg.Service.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(serviceName, logger)
	middlewareConfig.CORSOrigins = cfg.Server.CORSOrigins
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, ready))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	v1 := router.Group("/api/v1")
	if cfg.OpenAPIValidation {
		validator, err := openapi.NewValidator(api.OpenAPI)
		if err != nil {
			return nil, err
		}
		v1.Use(middleware.OpenAPIValidation(validator))
		logger.Info("OpenAPI request validation enabled")
	}
	if keys != nil {
		idempotencyConfig := idempotency.DefaultConfig(serviceName, keys, logger)
		idempotencyConfig.Metrics = m
		idempotencyConfig.RetentionPeriod = cfg.Idempotency.Retention
		idempotencyConfig.LockTimeout = cfg.Idempotency.LockTimeout
		v1.Use(idempotency.Middleware(idempotencyConfig))
	}

	handlers.RegisterRoutes(v1, handlers.Handlers{
		Products:  handlers.NewProductHandler(application.NewProductService(deps), logger),
		Fees:      handlers.NewFeeHandler(application.NewFeeService(deps), logger),
		Inventory: handlers.NewInventoryHandler(application.NewInventoryService(deps), logger),
		Orders:    handlers.NewOrderHandler(application.NewOrderService(deps), logger),
		Inbound:   handlers.NewInboundHandler(application.NewInboundService(deps), logger),
	})

	return router, nil
}

type publishedEventCleaner interface {
	DeletePublished(ctx context.Context, olderThan time.Duration) error
}

// cleanupOutbox drops relayed events older than retention once an hour
func cleanupOutbox(ctx context.Context, repo publishedEventCleaner, retention time.Duration, logger *logging.Logger) {
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeletePublished(ctx, retention); err != nil {
				logger.WithError(err).Warn("Failed to clean up published outbox events")
			}
		}
	}
}
