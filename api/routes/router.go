package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moviegate/moviegate-backend/api/controllers"
	webhookcontrollers "github.com/moviegate/moviegate-backend/api/controllers/webhooks"
	"github.com/moviegate/moviegate-backend/api/middleware"
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
	"github.com/moviegate/moviegate-backend/pkg/enums"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/redis"
	"github.com/moviegate/moviegate-backend/pkg/storage/gcs"
	"github.com/moviegate/moviegate-backend/pkg/stripe"
)

// Deps bundles everything the HTTP surface needs. cmd/api builds one and
// hands it over.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	GCS     gcs.Pinger
	Session session.AccessSessionChecker

	Auth          auth.Service
	Register      auth.RegisterService
	PasswordReset auth.PasswordResetService
	Users         users.Service
	Movies        movies.Service
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Payments      payments.Service
	Notifications notifications.Service
	Media         media.Service

	StripeClient  *stripe.Client
	StripeWebhook *stripewebhook.Service
	WebhookGuard  *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password-reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, controllers.ReadinessDeps{
			DB:     deps.DB,
			Redis:  deps.Redis,
			GCS:    deps.GCS,
			Stripe: cfg.Stripe,
		}, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.Register(deps.Register, logg))
		r.Post("/activate", controllers.Activate(deps.Register, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.Login(deps.Auth, logg))
		r.Post("/refresh", controllers.Refresh(deps.Auth, logg))
		r.Post("/logout", controllers.Logout(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, deps.Redis, logg)).Post("/password-reset", controllers.RequestPasswordReset(deps.PasswordReset, logg))
		r.Post("/password-reset/confirm", controllers.ConfirmPasswordReset(deps.PasswordReset, logg))
	})

	// Public catalog.
	r.Route("/api/v1/movies", func(r chi.Router) {
		r.Get("/", controllers.ListMovies(deps.Movies, logg))
		r.Get("/{movieId}", controllers.GetMovie(deps.Movies, logg))
	})
	r.Get("/api/v1/genres", controllers.ListGenres(deps.Movies, logg))
	r.Get("/api/v1/directors", controllers.ListDirectors(deps.Movies, logg))
	r.Get("/api/v1/stars", controllers.ListStars(deps.Movies, logg))
	r.Get("/api/v1/certifications", controllers.ListCertifications(deps.Movies, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.GetProfile(deps.Users, logg))
			r.Patch("/", controllers.UpdateProfile(deps.Users, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Cart, logg))
			r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
			r.Delete("/items/{movieId}", controllers.RemoveCartItem(deps.Cart, logg))
			r.Delete("/", controllers.ClearCart(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListMyOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.ListMyPayments(deps.Payments, logg))
			r.Post("/initiate", controllers.InitiatePayment(deps.Payments, logg))
		})

		r.Post("/media/presign", controllers.MediaPresign(deps.Media, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireGroups(logg, enums.UserGroupModerator, enums.UserGroupAdmin))
				r.Route("/movies", func(r chi.Router) {
					r.Post("/", controllers.AdminCreateMovie(deps.Movies, logg))
					r.Patch("/{movieId}", controllers.AdminUpdateMovie(deps.Movies, logg))
					r.Delete("/{movieId}", controllers.AdminDeleteMovie(deps.Movies, logg))
				})
				r.Get("/orders", controllers.AdminListOrders(deps.Orders, logg))
				r.Get("/payments", controllers.AdminListPayments(deps.Payments, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireGroups(logg, enums.UserGroupAdmin))
				r.Get("/users", controllers.AdminListUsers(deps.Users, logg))
				r.Patch("/users/{userId}/group", controllers.AdminChangeUserGroup(deps.Users, logg))
			})
		})
	})

	return r
}
