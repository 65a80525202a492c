package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/moviegate/moviegate-backend/internal/cart"
	"github.com/moviegate/moviegate-backend/internal/movies"
	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/internal/users"
	dbpkg "github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			user_group TEXT NOT NULL DEFAULT 'user',
			is_active INTEGER NOT NULL DEFAULT 0,
			last_login_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE movies (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			year INTEGER NOT NULL,
			runtime_minutes INTEGER NOT NULL,
			imdb_rating REAL NOT NULL DEFAULT 0,
			votes INTEGER NOT NULL DEFAULT 0,
			meta_score REAL,
			gross REAL,
			description TEXT NOT NULL,
			price TEXT NOT NULL,
			available INTEGER NOT NULL DEFAULT 1,
			poster_key TEXT,
			certification_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE carts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE cart_items (
			id TEXT PRIMARY KEY,
			cart_id TEXT NOT NULL,
			movie_id TEXT NOT NULL,
			added_at DATETIME NOT NULL,
			UNIQUE (cart_id, movie_id)
		)`,
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			total_amount TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			movie_id TEXT NOT NULL,
			movie_title TEXT NOT NULL,
			price_at_order TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			published_at DATETIME,
			attempt_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	return conn
}

func newCheckoutService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:     dbpkg.NewFromConn(conn),
		Carts:  cart.NewRepository(conn),
		Movies: movies.NewRepository(conn),
		Orders: orders.NewRepository(conn),
		Users:  users.NewRepository(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	return svc
}

func seedBuyer(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		PasswordHash: "irrelevant",
		Group:        enums.UserGroupUser,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func seedAvailableMovie(t *testing.T, conn *gorm.DB, title string, price float64) *models.Movie {
	t.Helper()
	now := time.Now().UTC()
	movie := &models.Movie{
		ID:              uuid.New(),
		Title:           title,
		Year:            2015,
		RuntimeMinutes:  100,
		Description:     "seed",
		Price:           decimal.NewFromFloat(price),
		Available:       true,
		CertificationID: uuid.New(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, conn.Create(movie).Error)
	return movie
}

func fillCart(t *testing.T, conn *gorm.DB, userID uuid.UUID, movieIDs ...uuid.UUID) {
	t.Helper()
	repo := cart.NewRepository(conn)
	userCart, err := repo.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	for _, id := range movieIDs {
		require.NoError(t, repo.AddItem(context.Background(), userCart.ID, id))
	}
}

func cartItemCount(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&count).Error)
	return count
}

func TestCheckoutCreatesPendingOrderAndEmptiesCart(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	buyer := seedBuyer(t, conn)
	first := seedAvailableMovie(t, conn, "First", 12.50)
	second := seedAvailableMovie(t, conn, "Second", 9.99)
	fillCart(t, conn, buyer.ID, first.ID, second.ID)

	order, err := svc.Checkout(ctx, buyer.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(22.49)))
	require.Len(t, order.Items, 2)
	assert.Equal(t, "First", order.Items[0].MovieTitle)
	assert.True(t, order.Items[0].PriceAtOrder.Equal(decimal.NewFromFloat(12.50)))

	assert.Zero(t, cartItemCount(t, conn))

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderPlaced, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestCheckoutEmptyCartIsRejected(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)

	buyer := seedBuyer(t, conn)

	_, err := svc.Checkout(context.Background(), buyer.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestCheckoutAbortsWhenAnyMovieTurnedUnavailable(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	buyer := seedBuyer(t, conn)
	keeper := seedAvailableMovie(t, conn, "Keeper", 5.00)
	pulled := seedAvailableMovie(t, conn, "Pulled", 7.00)
	fillCart(t, conn, buyer.ID, keeper.ID, pulled.ID)

	require.NoError(t, conn.Model(&models.Movie{}).Where("id = ?", pulled.ID).Update("available", false).Error)

	_, err := svc.Checkout(ctx, buyer.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	rejected, ok := details["movie_ids"].([]uuid.UUID)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{pulled.ID}, rejected)

	// All-or-nothing: cart still holds both lines, no order exists.
	assert.EqualValues(t, 2, cartItemCount(t, conn))
	var orderCount int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCheckoutSnapshotsPriceAtOrderTime(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	buyer := seedBuyer(t, conn)
	movie := seedAvailableMovie(t, conn, "Repriced", 10.00)
	fillCart(t, conn, buyer.ID, movie.ID)

	require.NoError(t, conn.Model(&models.Movie{}).Where("id = ?", movie.ID).Update("price", decimal.NewFromFloat(15.00)).Error)

	order, err := svc.Checkout(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].PriceAtOrder.Equal(decimal.NewFromFloat(15.00)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(15.00)))

	// Later catalog edits never touch the snapshot.
	require.NoError(t, conn.Model(&models.Movie{}).Where("id = ?", movie.ID).Update("price", decimal.NewFromFloat(1.00)).Error)
	loaded, err := orders.NewRepository(conn).FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Items[0].PriceAtOrder.Equal(decimal.NewFromFloat(15.00)))
}
