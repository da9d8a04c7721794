package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/config"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/api"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/cache"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/events"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/provider"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository/memory"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/services"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type stores struct {
	content repository.ContentRepository
	members repository.MembershipRepository
	ledger  repository.DeliveryRepository
	stats   repository.StatsRepository
}

// @title           Family Notify Service
// @version         1.0
// @description     Dispatches family announcements and event reminders over every opted-in channel

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey  CronSecret
// @in                          header
// @name                        Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	st, closeStore, err := setupStore(ctx, cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to setup store: %v", err)
	}
	defer closeStore()

	backend, closeCache, err := setupCache(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to setup cache: %v", err)
	}
	defer closeCache()

	publisher := events.NewPublisher(cfg.Kafka)
	defer publisher.Close()

	jobManager, server := buildApplication(ctx, cfg, st, cache.NewLoader(backend, cfg.Cache.TTL), publisher, &wg)

	if cfg.Scheduler.Interval > 0 {
		startBackgroundJob(ctx, jobManager)
	} else {
		logrus.Info("Scheduler interval not set, due items are dispatched by the cron endpoint only.")
	}
	startServer(server)

	waitForShutdown(server, cfg.Server.ShutdownTimeout, cancel, &wg)

	logrus.Info("Server gracefully stopped")
}

func setupLogging(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func setupStore(ctx context.Context, cfg config.DatabaseConfig) (stores, func(), error) {
	if cfg.Driver == "memory" {
		s := memory.New()
		logrus.Warn("Using the in-memory store, data is lost on restart.")
		return stores{content: s, members: s, ledger: s, stats: s}, func() {}, nil
	}

	dbPool, err := repository.NewConnection(ctx, cfg)
	if err != nil {
		return stores{}, nil, fmt.Errorf("failed to establish database connection: %w", err)
	}
	logrus.Info("Database connection established.")

	if cfg.Migrate {
		if err := repository.Migrate(ctx, dbPool); err != nil {
			dbPool.Close()
			return stores{}, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logrus.Info("Database schema is up to date.")
	}

	return stores{
		content: repository.NewContentRepository(dbPool),
		members: repository.NewMembershipRepository(dbPool),
		ledger:  repository.NewDeliveryRepository(dbPool),
		stats:   repository.NewStatsRepository(dbPool),
	}, dbPool.Close, nil
}

func setupCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.Cache.Backend == "redis" {
		redisClient, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to establish Redis connection: %w", err)
		}
		logrus.Info("Redis connection established.")
		return cache.NewRedisCache(redisClient, cfg.Cache.TTL), func() { _ = redisClient.Close() }, nil
	}

	mc := cache.NewMemoryCache(cfg.Cache.TTL)
	mc.StartSweeper(ctx, cfg.Cache.SweepInterval)
	return mc, func() {}, nil
}

func buildApplication(
	appCtx context.Context,
	cfg *config.Config,
	st stores,
	loader *cache.Loader,
	publisher events.Publisher,
	wg *sync.WaitGroup,
) (*worker.JobManager, *http.Server) {
	providers := provider.NewRegistryFromConfig(cfg.Providers, cfg.Dispatch.ProviderTimeout)
	logrus.WithField("channels", providers.Configured()).Info("Providers configured.")

	dispatchService := services.NewDispatchService(st.content, st.ledger, services.NewRecipientResolver(st.members),
		providers, loader, publisher, services.DispatchOptions{
			Concurrency:     cfg.Dispatch.Concurrency,
			ProviderTimeout: cfg.Dispatch.ProviderTimeout,
			PublishTimeout:  cfg.Dispatch.PublishTimeout,
		})
	schedulerService := services.NewSchedulerService(st.content, st.ledger, dispatchService, services.SchedulerOptions{
		BatchSize: cfg.Dispatch.BatchSize,
		ItemDelay: cfg.Dispatch.ItemDelay,
	})

	jobManager := worker.NewJobManager(schedulerService, cfg.Scheduler.Interval, wg)
	apiHandler := api.NewHandler(api.Services{
		Dispatch:   dispatchService,
		Scheduler:  schedulerService,
		Progress:   services.NewProgressService(st.ledger),
		Stats:      services.NewStatsService(st.stats, st.members, loader),
		Content:    services.NewContentService(st.content, st.members, st.ledger, dispatchService, schedulerService, loader),
		Membership: services.NewMembershipService(st.members, loader),
	}, jobManager, cfg.Scheduler.CronSecret, appCtx)

	router := api.NewRouter(apiHandler)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.Info("Application components built successfully.")
	return jobManager, server
}

func startBackgroundJob(ctx context.Context, jobManager *worker.JobManager) {
	if err := jobManager.Start(ctx); err != nil {
		logrus.WithError(err).Error("Unexpected error while starting job")
		return
	}
	logrus.Info("Background job started.")
}

func startServer(server *http.Server) {
	go func() {
		logrus.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Unexpected error while starting server: %v", err)
		}
	}()
}

func waitForShutdown(server *http.Server, timeout time.Duration, cancelApp context.CancelFunc, wg *sync.WaitGroup) {
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	<-shutdownChan

	logrus.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Unexpected error while shutting down server")
	}

	cancelApp()
	wg.Wait()
}
