package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/moviegate/moviegate-backend/internal/cron"
	"github.com/moviegate/moviegate-backend/internal/notifications"
	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/internal/tokens"
	"github.com/moviegate/moviegate-backend/internal/users"
	"github.com/moviegate/moviegate-backend/pkg/config"
	"github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/metrics"
	"github.com/moviegate/moviegate-backend/pkg/migrate"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/redis"
)

const lockKeyFormat = "mg:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	registry := cron.NewRegistry()
	if err := registerJobs(registry, cfg, logg, dbClient, outboxService); err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func registerJobs(registry *cron.Registry, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, outboxService *outbox.Service) error {
	conn := dbClient.DB()

	tokenCleanup, err := cron.NewTokenCleanupJob(cron.TokenCleanupJobParams{
		Logger:            logg,
		ActivationRepo:    tokens.NewActivationRepository(conn),
		PasswordResetRepo: tokens.NewPasswordResetRepository(conn),
	})
	if err != nil {
		return fmt.Errorf("token cleanup job: %w", err)
	}

	notificationCleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(conn),
		Retention:  days(cfg.Cron.NotificationRetention),
	})
	if err != nil {
		return fmt.Errorf("notification cleanup job: %w", err)
	}

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(conn),
		Retention:  days(cfg.Cron.OutboxRetention),
	})
	if err != nil {
		return fmt.Errorf("outbox retention job: %w", err)
	}

	orderTTL, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger:      logg,
		DB:          dbClient,
		Orders:      orders.NewRepository(conn),
		Users:       users.NewRepository(conn),
		Outbox:      outboxService,
		ExpiryHours: int(cfg.Cron.OrderExpiry.Hours()),
	})
	if err != nil {
		return fmt.Errorf("order ttl job: %w", err)
	}

	registry.Register(tokenCleanup)
	registry.Register(notificationCleanup)
	registry.Register(outboxRetention)
	registry.Register(orderTTL)
	return nil
}

func days(d time.Duration) int {
	return int(d.Hours() / 24)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
