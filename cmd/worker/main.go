package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/fulfillment-service/internal/activities"
	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/internal/config"
	"github.com/wms-platform/fulfillment-service/internal/domain"
	mongoRepo "github.com/wms-platform/fulfillment-service/internal/infrastructure/mongodb"
	redisinfra "github.com/wms-platform/fulfillment-service/internal/infrastructure/redis"
	"github.com/wms-platform/fulfillment-service/internal/workflows"
	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/mongodb"
	"github.com/wms-platform/fulfillment-service/pkg/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig("fulfillment-worker")).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(cfg.Service.Name + "-worker")
	logConfig.Level = logging.ParseLevel(cfg.Service.LogLevel)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment worker")

	ctx := context.Background()

	mongoClient, err := mongodb.NewClient(ctx, &mongodb.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
		MinPoolSize:    mongodb.DefaultConfig().MinPoolSize,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(context.Background())

	schedule := domain.DefaultFeeSchedule()
	if cfg.RateCardFile != "" {
		if schedule, err = config.LoadFeeSchedule(cfg.RateCardFile); err != nil {
			logger.WithError(err).Error("Failed to load rate card", "file", cfg.RateCardFile)
			os.Exit(1)
		}
	}

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
		Metrics:        metrics.New(metrics.DefaultConfig(cfg.Service.Name + "-worker")),
		Options:        application.Options{LockWait: cfg.Redis.LockWait},
	}

	// Activities share the API's ledger locks through Redis
	if cfg.Redis.Enabled {
		redisClient, err := redisinfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis", "addr", cfg.Redis.Addr)
			os.Exit(1)
		}
		defer redisClient.Close()
		deps.Locker = redisinfra.NewLocker(redisClient, cfg.Redis.LockTTL, logger)
	} else {
		logger.Warn("Redis disabled, worker locks do not coordinate with the API")
	}

	temporalClient, err := temporal.NewClient(ctx, &temporal.Config{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Identity:  cfg.Service.Name + "-worker",
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)

	taskQueue := cfg.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = temporal.TaskQueues.Inbound
	}
	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(taskQueue))
	register(w, activities.NewInboundActivities(application.NewInboundService(deps)))
	logger.Info("Registered workflows and activities", "workflows", []string{temporal.WorkflowNames.InboundPickup})

	if err := w.Start(); err != nil {
		logger.WithError(err).Error("Worker failed to start")
		os.Exit(1)
	}
	logger.Info("Worker started", "taskQueue", taskQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
}

// register binds the pickup workflow and its activities under their public names
func register(w worker.Registry, acts *activities.InboundActivities) {
	w.RegisterWorkflowWithOptions(workflows.InboundPickupWorkflow, workflow.RegisterOptions{
		Name: temporal.WorkflowNames.InboundPickup,
	})
	w.RegisterActivityWithOptions(acts.InitiateInboundPickup, activity.RegisterOptions{
		Name: temporal.ActivityNames.InitiatePickup,
	})
	w.RegisterActivityWithOptions(acts.CancelInbound, activity.RegisterOptions{
		Name: temporal.ActivityNames.CancelInbound,
	})
	w.RegisterActivityWithOptions(acts.CompleteInbound, activity.RegisterOptions{
		Name: temporal.ActivityNames.CompleteInbound,
	})
}
