package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/moviegate/moviegate-backend/internal/auth"
	"github.com/moviegate/moviegate-backend/internal/cart"
	"github.com/moviegate/moviegate-backend/internal/media"
	moviesvc "github.com/moviegate/moviegate-backend/internal/movies"
	"github.com/moviegate/moviegate-backend/internal/notifications"
	ordersvc "github.com/moviegate/moviegate-backend/internal/orders"
	paymentsvc "github.com/moviegate/moviegate-backend/internal/payments"
	usersvc "github.com/moviegate/moviegate-backend/internal/users"
	pkgAuth "github.com/moviegate/moviegate-backend/pkg/auth"
	"github.com/moviegate/moviegate-backend/pkg/auth/session"
	"github.com/moviegate/moviegate-backend/pkg/config"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	return &auth.RefreshResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessToken string) error { return nil }

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) error { return nil }
func (stubRegisterService) Activate(ctx context.Context, token string) error             { return nil }

type stubResetService struct{}

func (stubResetService) Request(ctx context.Context, req auth.PasswordResetRequest) error {
	return nil
}

func (stubResetService) Confirm(ctx context.Context, req auth.PasswordResetConfirm) error {
	return nil
}

type stubUsersService struct{}

func (stubUsersService) GetProfile(ctx context.Context, userID uuid.UUID) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: userID}, nil
}

func (stubUsersService) UpdateProfile(ctx context.Context, userID uuid.UUID, req usersvc.UpdateProfileRequest) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: userID}, nil
}

func (stubUsersService) ListUsers(ctx context.Context, limit, offset int) ([]usersvc.UserDTO, int64, error) {
	return nil, 0, nil
}

func (stubUsersService) ChangeGroup(ctx context.Context, userID uuid.UUID, group enums.UserGroup) error {
	return nil
}

type stubMoviesService struct{}

func (stubMoviesService) List(ctx context.Context, query moviesvc.ListQuery) (*moviesvc.ListResult, error) {
	return &moviesvc.ListResult{Movies: []moviesvc.MovieSummary{}}, nil
}

func (stubMoviesService) GetDetail(ctx context.Context, id uuid.UUID) (*moviesvc.MovieDetail, error) {
	return &moviesvc.MovieDetail{ID: id}, nil
}

func (stubMoviesService) ListGenres(ctx context.Context) ([]moviesvc.NamedEntry, error) {
	return nil, nil
}

func (stubMoviesService) ListDirectors(ctx context.Context) ([]moviesvc.NamedEntry, error) {
	return nil, nil
}

func (stubMoviesService) ListStars(ctx context.Context) ([]moviesvc.NamedEntry, error) {
	return nil, nil
}

func (stubMoviesService) ListCertifications(ctx context.Context) ([]moviesvc.NamedEntry, error) {
	return nil, nil
}

func (stubMoviesService) Create(ctx context.Context, req moviesvc.CreateMovieRequest) (*moviesvc.MovieDetail, error) {
	return &moviesvc.MovieDetail{}, nil
}

func (stubMoviesService) Update(ctx context.Context, id uuid.UUID, req moviesvc.UpdateMovieRequest) (*moviesvc.MovieDetail, error) {
	return &moviesvc.MovieDetail{ID: id}, nil
}

func (stubMoviesService) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) AddItem(ctx context.Context, userID, movieID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID, movieID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) Clear(ctx context.Context, userID uuid.UUID) error { return nil }

type stubCheckoutService struct{}

func (stubCheckoutService) Checkout(ctx context.Context, userID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{UserID: userID}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: orderID, UserID: userID}, nil
}

func (stubOrdersService) GetAdmin(ctx context.Context, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: orderID}, nil
}

func (stubOrdersService) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*ordersvc.ListResult, error) {
	return &ordersvc.ListResult{}, nil
}

func (stubOrdersService) ListAdmin(ctx context.Context, query ordersvc.ListQuery) (*ordersvc.ListResult, error) {
	return &ordersvc.ListResult{}, nil
}

func (stubOrdersService) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: orderID, UserID: userID}, nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) Initiate(ctx context.Context, userID, orderID uuid.UUID) (*paymentsvc.InitiateResponse, error) {
	return &paymentsvc.InitiateResponse{}, nil
}

func (stubPaymentsService) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*paymentsvc.ListResult, error) {
	return &paymentsvc.ListResult{}, nil
}

func (stubPaymentsService) ListAdmin(ctx context.Context, query paymentsvc.ListQuery) (*paymentsvc.ListResult, error) {
	return &paymentsvc.ListResult{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubMediaService struct{}

func (stubMediaService) PresignUpload(userID uuid.UUID, group enums.UserGroup, input media.PresignInput) (*media.PresignOutput, error) {
	return &media.PresignOutput{}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	return cfg
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})

	router := NewRouter(Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		GCS:           stubPinger{},
		Session:       stubSessionChecker{},
		Auth:          stubAuthService{},
		Register:      stubRegisterService{},
		PasswordReset: stubResetService{},
		Users:         stubUsersService{},
		Movies:        stubMoviesService{},
		Cart:          stubCartService{},
		Checkout:      stubCheckoutService{},
		Orders:        stubOrdersService{},
		Payments:      stubPaymentsService{},
		Notifications: stubNotificationsService{},
		Media:         stubMediaService{},
	})
	return router, cfg
}

func mintGroupToken(t *testing.T, cfg *config.Config, group enums.UserGroup) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Group:  group,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPublicCatalogNeedsNoAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/movies", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-MovieGate-Env") != "test" {
		t.Fatalf("expected env header, got %q", rec.Header().Get("X-MovieGate-Env"))
	}
}

func TestCartRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCartWithToken(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintGroupToken(t, cfg, enums.UserGroupUser))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestAdminSurfaceForbiddenForRegularUsers(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintGroupToken(t, cfg, enums.UserGroupUser))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestAdminOrdersAllowedForModerators(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintGroupToken(t, cfg, enums.UserGroupModerator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestAdminUsersNeedsAdminGroup(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+mintGroupToken(t, cfg, enums.UserGroupModerator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req2.Header.Set("Authorization", "Bearer "+mintGroupToken(t, cfg, enums.UserGroupAdmin))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec2.Code, rec2.Body.String())
	}
}
