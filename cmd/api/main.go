package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentbook/internal/api"
	"rentbook/internal/broker/kafka"
	"rentbook/internal/config"
	"rentbook/internal/database"
	"rentbook/internal/database/postgres"
	"rentbook/internal/domain"
	"rentbook/internal/events"
	"rentbook/internal/google"
	"rentbook/internal/logging"
	"rentbook/internal/metrics"
	"rentbook/internal/models"
	"rentbook/internal/repository"
	"rentbook/internal/security"
	"rentbook/internal/service"
	"rentbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// backend is what both storage drivers provide.
type backend interface {
	domain.BookingStore
	domain.ItemRepository
	domain.SyncTaskStore
	SyncItems(ctx context.Context, items []models.Item) error
	Close() error
}

type failedTaskRequeuer interface {
	GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error)
	RequeueFailedSyncTasks(ctx context.Context) (int64, error)
}

func main() {
	requeueFailed := flag.Bool("requeue-failed", false, "move failed sync tasks back to pending on startup")
	flag.Parse()

	if err := run(*requeueFailed); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(requeueFailed bool) error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	items, err := loadItems(&logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := initStore(ctx, cfg, items, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if requeueFailed {
		requeueFailedTasks(ctx, store, &logger)
	}

	redisClient := initRedis(ctx, cfg, &logger)
	defer repository.Close(redisClient)
	cache := initCache(cfg, redisClient, &logger)

	eventBus := events.NewEventBus()
	eventBus.SubscribeMany(events.AllBookingEvents, events.NewAuditHandler(&logger))

	sinks, closeSinks := initSinks(ctx, cfg, &logger)
	defer closeSinks()

	var syncWorker domain.SyncWorker
	if cfg.Worker.Enabled && len(sinks) > 0 {
		w := worker.NewSyncWorker(store, redisClient, workerOptions(cfg.Worker), &logger, sinks...)
		go w.Start(ctx)
		syncWorker = w
	} else if cfg.Worker.Enabled {
		logger.Warn().Msg("sync worker enabled but no sinks configured; skipping")
	}

	itemService := service.NewItemService(store, cache, &logger)
	bookingService := service.NewBookingService(store, itemService, cache, eventBus, syncWorker, service.BookingOptions{
		MaxAdvanceDays: cfg.Booking.MaxAdvanceDays,
		StrictPricing:  cfg.Booking.StrictPricing,
		CreateLimit:    cfg.Booking.CreateLimit,
		CreateWindow:   cfg.Booking.CreateWindow,
	}, &logger)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go func() {
			if err := backup.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("backup service stopped")
			}
		}()
	}

	startMetrics(ctx, cfg, &logger)

	tokens := security.NewTokenManager(cfg.API.JWT.Secret, cfg.API.JWT.Issuer, cfg.API.JWT.ArbiterRole, cfg.API.JWT.TTL)
	httpServer := api.NewHTTPServer(cfg.API, bookingService, tokens, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, bookingService, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, *logging.Component(baseLogger, "api-main"), closer, nil
}

func loadItems(logger *zerolog.Logger) ([]models.Item, error) {
	itemsPath := os.Getenv("ITEMS_PATH")
	if itemsPath == "" {
		itemsPath = "configs/items.yaml"
	}
	itemsData, err := os.ReadFile(itemsPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("items_path", itemsPath).Msg("no item seed found, catalog left as is")
		return nil, nil
	}
	if err != nil {
		logger.Error().Err(err).Str("items_path", itemsPath).Msg("read items")
		return nil, err
	}

	var itemsConfig struct {
		Items []models.Item `yaml:"items"`
	}
	if err := yaml.Unmarshal(itemsData, &itemsConfig); err != nil {
		logger.Error().Err(err).Str("items_path", itemsPath).Msg("parse items")
		return nil, err
	}

	if err := config.ValidateItems(itemsConfig.Items); err != nil {
		logger.Error().Err(err).Msg("items validation failed")
		return nil, err
	}
	return itemsConfig.Items, nil
}

func initStore(ctx context.Context, cfg *config.Config, items []models.Item, logger *zerolog.Logger) (backend, error) {
	var (
		store backend
		err   error
	)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg := cfg.Database.Postgres
		store, err = postgres.Open(ctx, pg.DSN(), pg.MaxConnections, logger)
	default:
		store, err = database.NewDB(cfg.Database.Path, logger)
	}
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return nil, err
	}

	if len(items) > 0 {
		if err := store.SyncItems(ctx, items); err != nil {
			logger.Error().Err(err).Msg("item seed failed")
		}
	}
	return store, nil
}

func requeueFailedTasks(ctx context.Context, store backend, logger *zerolog.Logger) {
	r, ok := store.(failedTaskRequeuer)
	if !ok {
		logger.Warn().Msg("requeue of failed sync tasks is not supported by this driver")
		return
	}
	failed, err := r.GetFailedSyncTasks(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list failed sync tasks")
		return
	}
	for i := range failed {
		ev := logger.Info().Int64("task_id", failed[i].ID).Str("task_type", failed[i].TaskType)
		if failed[i].LastError != nil {
			ev = ev.Str("last_error", *failed[i].LastError)
		}
		ev.Msg("requeueing failed sync task")
	}

	n, err := r.RequeueFailedSyncTasks(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("requeue failed sync tasks")
		return
	}
	logger.Info().Int64("tasks", n).Msg("failed sync tasks requeued")
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.CacheRepository {
	memory := repository.NewMemoryCacheRepository(cfg.Booking.ItemCacheTTL)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisCacheRepository(redisClient, cfg.Booking.ItemCacheTTL)
	return repository.NewFailoverCacheRepository(primary, memory, logger)
}

// initSinks builds the external mirrors the sync worker feeds. A sink that
// fails to initialize is skipped so the API still starts.
func initSinks(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) ([]worker.BookingSink, func()) {
	var (
		sinks   []worker.BookingSink
		closers []func()
	)

	if cfg.Google.GoogleCredentialsFile != "" && cfg.Google.BookingSpreadSheetID != "" {
		if sheets, err := initGoogleSheets(ctx, cfg, logger); err != nil {
			logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		} else {
			sinks = append(sinks, sheets)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("kafka producer init failed, continuing without kafka")
		} else {
			sinks = append(sinks, kafka.NewBookingPublisher(producer, cfg.Kafka.Topic))
			closers = append(closers, func() { _ = producer.Close() })
			logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka connected")
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*google.SheetsService, error) {
	sheets, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID, logger)
	if err != nil {
		return nil, err
	}
	if err := sheets.TestConnection(ctx); err != nil {
		return nil, err
	}
	if err := sheets.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("write sheet header: %w", err)
	}
	if err := sheets.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("sheets row cache warm-up failed")
	}
	go sheets.RefreshCache(ctx, 10*time.Minute)

	logger.Info().Msg("google sheets connected")
	return sheets, nil
}

func workerOptions(cfg config.WorkerConfig) worker.Options {
	return worker.Options{
		Retry: worker.RetryPolicy{
			MaxRetries:    cfg.MaxRetries,
			InitialDelay:  cfg.InitialDelay,
			MaxDelay:      cfg.MaxDelay,
			BackoffFactor: cfg.BackoffFactor,
		},
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", grpcServer != nil).
		Int("http_port", cfg.API.HTTP.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
