package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatisathi/internal/api"
	"gatisathi/internal/auth"
	"gatisathi/internal/config"
	"gatisathi/internal/database"
	"gatisathi/internal/domain"
	"gatisathi/internal/events"
	"gatisathi/internal/logging"
	"gatisathi/internal/metrics"
	"gatisathi/internal/repository"
	"gatisathi/internal/service"
	"gatisathi/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database, &logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient, err := initRedis(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	inventory := initInventory(cfg, db, redisClient, &logger)
	if err := seedRides(ctx, inventory, &logger); err != nil {
		return err
	}

	eventBus := events.NewEventBus()
	relayDone := make(chan struct{})
	relay, sink := initEventRelay(cfg, eventBus, redisClient, &logger)
	if relay != nil {
		go func() {
			defer close(relayDone)
			relay.Start(ctx)
		}()
		defer func() {
			stop()
			<-relayDone
			if err := sink.Close(); err != nil {
				logger.Warn().Err(err).Msg("close kafka writer")
			}
		}()
	}

	var limiter domain.RateLimiter = repository.NewMemoryRateLimiter()
	if redisClient != nil {
		limiter = repository.NewFailoverRateLimiter(repository.NewRedisRateLimiter(redisClient), limiter, &logger)
	}

	tokens := auth.NewTokenService(cfg.Auth)
	services := api.Services{
		Reservations: service.NewReservationService(inventory, db, limiter, eventBus, service.PolicyFromConfig(cfg.Booking), &logger),
		Bookings:     service.NewBookingQuery(db, inventory, db, &logger),
		Rides:        service.NewRideService(inventory, db, eventBus, cfg.Booking.MaxSeatsOffered, &logger),
		Users:        service.NewUserService(db, tokens, &logger),
	}
	httpServer := api.NewHTTPServer(cfg.API, services, tokens, readinessChecks(db, redisClient), &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return serve(ctx, httpServer, cfg, &logger)
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
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// initRedis connects when an address is configured. Redis is optional unless
// it backs the ride inventory.
func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, error) {
	if cfg.Redis.Address == "" {
		return nil, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		_ = client.Close()
		if cfg.Inventory.Backend == config.InventoryRedis {
			return nil, fmt.Errorf("redis inventory unavailable: %w", err)
		}
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil, nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client, nil
}

func initInventory(cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.RideInventory {
	logger.Info().Str("backend", cfg.Inventory.Backend).Msg("ride inventory selected")
	switch cfg.Inventory.Backend {
	case config.InventoryRedis:
		return repository.NewRedisInventory(redisClient)
	case config.InventoryMemory:
		return repository.NewMemoryInventory()
	default:
		return db
	}
}

func seedRides(ctx context.Context, inventory domain.RideInventory, logger *zerolog.Logger) error {
	path := os.Getenv("SEED_RIDES_PATH")
	if path == "" {
		return nil
	}

	rides, err := config.LoadSeedRides(path)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", path).Msg("load seed rides")
		return err
	}

	created := 0
	for _, ride := range rides {
		if ride.ID != "" {
			if _, err := inventory.GetRide(ctx, ride.ID); err == nil {
				continue
			} else if !errors.Is(err, domain.ErrRideNotFound) {
				return err
			}
		}
		if err := inventory.CreateRide(ctx, ride); err != nil {
			return fmt.Errorf("seed ride %s: %w", ride.ID, err)
		}
		created++
	}
	logger.Info().Int("created", created).Int("total", len(rides)).Msg("seed rides loaded")
	return nil
}

func initEventRelay(cfg *config.Config, bus *events.EventBus, redisClient *redis.Client, logger *zerolog.Logger) (*worker.EventRelay, *events.KafkaSink) {
	if !cfg.Kafka.Enabled() {
		logger.Info().Msg("kafka not configured, events stay in process")
		return nil, nil
	}

	sink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	relay := worker.NewEventRelay(sink, redisClient, worker.RetryPolicyFromConfig(cfg.Events), cfg.Events.DeadLetterKey, logger)
	relay.Subscribe(bus)
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("event relay enabled")
	return relay, sink
}

func readinessChecks(db *database.DB, redisClient *redis.Client) []api.ReadinessCheck {
	checks := []api.ReadinessCheck{{Name: "database", Check: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, api.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return repository.Ping(ctx, redisClient)
		}})
	}
	return checks
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
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
