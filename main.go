package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/infrastructure/cache"
	"kreatr-scheduler/infrastructure/clients/instagram"
	"kreatr-scheduler/infrastructure/clients/tiktok"
	"kreatr-scheduler/infrastructure/clients/twitter"
	youtubeclient "kreatr-scheduler/infrastructure/clients/youtube"
	"kreatr-scheduler/infrastructure/configuration"
	"kreatr-scheduler/infrastructure/logger"
	"kreatr-scheduler/infrastructure/persistence"
	"kreatr-scheduler/infrastructure/pubsub"
	"kreatr-scheduler/infrastructure/realtime"
	"kreatr-scheduler/infrastructure/servicebus"
	httpHandler "kreatr-scheduler/interfaces/http"
	"kreatr-scheduler/server"
	"kreatr-scheduler/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App
	sched := configuration.C.Scheduler

	contentDb, usingMSSQL, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Content database initialization failed")
		os.Exit(1)
	}
	if usingMSSQL {
		if err := persistence.EnsureContentSchemaMSSQL(contentDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring content schema (mssql)")
		}
	} else {
		if err := persistence.EnsureContentSchema(contentDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring content schema")
		}
	}

	accountDb, err := persistence.NewAccountDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Account database initialization failed")
		os.Exit(1)
	}

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without dispatch history")
		mongoDb = nil
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without dispatch history")
		mongoDb = nil
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - continuing without outcome events")
		pubSubClient = nil
	}

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without failure alerts")
		azServiceBusClient = nil
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without queue-status cache")
		redisClient = nil
	}

	// Repository wiring: the content store follows the environment's vendor.
	var contentRepo repository.IContent
	var userRepository repository.IUser
	if usingMSSQL {
		contentRepo = persistence.NewContentRepositoryMSSQL(contentDb)
		userRepository = persistence.NewUserRepositoryMSSQL(contentDb)
	} else {
		contentRepo = persistence.NewContentRepository(contentDb)
		userRepository = persistence.NewUserRepository(contentDb)
	}
	accountRepo := persistence.NewAccountRepository(accountDb)
	workspaceRepo := persistence.NewWorkspaceRepository(accountDb)

	var historyRepo repository.IDispatchHistory
	if mongoDb != nil {
		historyRepo = persistence.NewDispatchHistoryRepository(mongoDb)
	}
	var events pubsub.IEventEmitter
	if pubSubClient != nil {
		events = pubsub.NewEventEmitter(pubSubClient, configuration.C.Pubsub.OutcomeTopic)
	}
	var alerts servicebus.IAlertNotifier
	if azServiceBusClient != nil {
		alerts = servicebus.NewAlertNotifier(azServiceBusClient, configuration.C.ServiceBus.AlertQueue)
	}
	queueCache := cache.NewQueueCache(redisClient)

	publishers := buildPublishers(configuration.C.Platforms)

	hub := realtime.NewDispatchHub()

	scheduleUC := usecase.NewScheduleUsecase(contentRepo, accountRepo, workspaceRepo, queueCache)
	dispatchUC := usecase.NewDispatchUsecase(
		contentRepo,
		accountRepo,
		publishers,
		historyRepo,
		events,
		alerts,
		usecase.WithBatchSize(sched.BatchSize),
		usecase.WithPublishTimeout(time.Duration(sched.PublishTimeoutSeconds)*time.Second),
		usecase.WithParallelism(sched.ItemParallel, sched.PostParallel),
		usecase.WithBroadcaster(hub.BroadcastPostStatus),
	)

	scheduleHandler := httpHandler.NewScheduleHandler(scheduleUC, historyRepo, configuration.C.Platforms.Enabled)
	schedulerHandler := httpHandler.NewSchedulerHandler(dispatchUC, sched.CronSecret, app.Env, sched.RetryBatchSize)

	router := server.InitiateRouter(scheduleHandler, schedulerHandler, userRepository, hub)

	// Internal dispatch loop. The external cron hitting /scheduler/process is
	// the production trigger; this ticker covers deployments without one. The
	// claim step makes the overlap harmless.
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(sched.TickSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				tickCtx, cancelTick := context.WithTimeout(ctx, time.Duration(sched.TickSeconds)*time.Second)
				if summary, err := dispatchUC.ProcessScheduledPosts(tickCtx); err != nil {
					logger.GetLogger().WithField("error", err).Error("Dispatch tick failed")
				} else if summary.Claimed > 0 {
					logger.GetLogger().
						WithField("claimed", summary.Claimed).
						WithField("published", summary.Published).
						WithField("failed", summary.Failed).
						Info("Internal ticker dispatched items")
				}
				cancelTick()
			}
		}
	})

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if app.TLSEnabled && app.TLSCertFile != "" && app.TLSKeyFile != "" {
			if err := httpServer.ListenAndServeTLS(app.TLSCertFile, app.TLSKeyFile); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase opens the content store. Production runs on Azure SQL;
// everywhere else uses PostgreSQL. DB_VENDOR=mssql forces the Azure path for
// local testing against the SQL Server container.
func InitiateDatabase() (*sql.DB, bool, error) {
	env := os.Getenv("ENV")
	if v := os.Getenv("DB_VENDOR"); v == "mssql" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL (DB_VENDOR=mssql)")
			return nil, false, err
		}
		return db, true, nil
	}
	if env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL (production)")
			return nil, false, err
		}
		return db, true, nil
	}

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, false, err
	}
	return db, false, nil
}

func buildPublishers(cfg configuration.Platforms) map[string]repository.IPublisher {
	publishers := make(map[string]repository.IPublisher, len(cfg.Enabled))
	for _, p := range cfg.Enabled {
		switch p {
		case "twitter":
			publishers[p] = twitter.NewPublisher(cfg.Twitter.Host)
		case "instagram":
			publishers[p] = instagram.NewPublisher(cfg.Instagram.Host)
		case "tiktok":
			publishers[p] = tiktok.NewPublisher(cfg.TikTok.Host)
		case "youtube":
			publishers[p] = youtubeclient.NewPublisher()
		default:
			logger.GetLogger().WithField("platform", p).Warn("Unknown platform in config - skipping")
		}
	}
	return publishers
}
