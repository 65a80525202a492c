package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/moviegate/moviegate-backend/api/routes"
	"github.com/moviegate/moviegate-backend/internal/auth"
	"github.com/moviegate/moviegate-backend/internal/cart"
	checkoutsvc "github.com/moviegate/moviegate-backend/internal/checkout"
	"github.com/moviegate/moviegate-backend/internal/media"
	"github.com/moviegate/moviegate-backend/internal/movies"
	"github.com/moviegate/moviegate-backend/internal/notifications"
	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/internal/payments"
	"github.com/moviegate/moviegate-backend/internal/users"
	stripewebhook "github.com/moviegate/moviegate-backend/internal/webhooks/stripe"
	"github.com/moviegate/moviegate-backend/pkg/auth/session"
	"github.com/moviegate/moviegate-backend/pkg/config"
	"github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/migrate"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/redis"
	"github.com/moviegate/moviegate-backend/pkg/storage/gcs"
	pkgstripe "github.com/moviegate/moviegate-backend/pkg/stripe"
)

const webhookGuardTTL = 72 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	moviesRepo := movies.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Outbox:         outboxService,
		PasswordConfig: cfg.Password,
		TokenConfig:    cfg.Tokens,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	resetService, err := auth.NewPasswordResetService(auth.PasswordResetServiceParams{
		DB:             dbClient,
		Outbox:         outboxService,
		Logger:         logg,
		PasswordConfig: cfg.Password,
		TokenConfig:    cfg.Tokens,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create password reset service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	moviesService, err := movies.NewService(dbClient, moviesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create movies service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, moviesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		DB:     dbClient,
		Carts:  cartRepo,
		Movies: moviesRepo,
		Orders: ordersRepo,
		Users:  usersRepo,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		DB:     dbClient,
		Repo:   ordersRepo,
		Users:  usersRepo,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:   paymentsRepo,
		Orders: ordersRepo,
		Stripe: payments.NewStripeClient(stripeClient),
		Config: cfg.Stripe,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	mediaService, err := media.NewService(gcsClient, gcsClient.DefaultBucket(), cfg.Media)
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		TransactionRunner: dbClient,
		Orders:            ordersRepo,
		Payments:          paymentsRepo,
		Users:             usersRepo,
		Outbox:            outboxService,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			GCS:           gcsClient,
			Session:       sessionManager,
			Auth:          authService,
			Register:      registerService,
			PasswordReset: resetService,
			Users:         usersService,
			Movies:        moviesService,
			Cart:          cartService,
			Checkout:      checkoutService,
			Orders:        ordersService,
			Payments:      paymentsService,
			Notifications: notificationsService,
			Media:         mediaService,
			StripeClient:  stripeClient,
			StripeWebhook: webhookService,
			WebhookGuard:  webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
