package cart

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

	"github.com/moviegate/moviegate-backend/internal/movies"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	statements := []string{
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
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	return conn
}

func newCartService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), movies.NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func seedCartMovie(t *testing.T, conn *gorm.DB, title string, price float64, available bool) *models.Movie {
	t.Helper()
	now := time.Now().UTC()
	movie := &models.Movie{
		ID:              uuid.New(),
		Title:           title,
		Year:            2000,
		RuntimeMinutes:  100,
		Description:     "seed",
		Price:           decimal.NewFromFloat(price),
		Available:       available,
		CertificationID: uuid.New(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, conn.Create(movie).Error)
	return movie
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, code, appErr.Code())
}

func TestGetProvisionsEmptyCart(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	userID := uuid.New()

	cart, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, cart.ID)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())

	again, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestAddItemAndTotal(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	first := seedCartMovie(t, conn, "First", 9.99, true)
	second := seedCartMovie(t, conn, "Second", 4.50, true)

	_, err := svc.AddItem(ctx, userID, first.ID)
	require.NoError(t, err)

	cart, err := svc.AddItem(ctx, userID, second.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "First", cart.Items[0].Title)
	assert.Equal(t, "Second", cart.Items[1].Title)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromFloat(14.49)))
}

func TestAddItemRejectsDuplicates(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	movie := seedCartMovie(t, conn, "Single", 9.99, true)

	_, err := svc.AddItem(ctx, userID, movie.ID)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, userID, movie.ID)
	assertCode(t, err, pkgerrors.CodeValidation)

	var count int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// blindAddStore hides an existing line from the duplicate pre-check, the
// way a concurrent add that commits between check and insert would.
type blindAddStore struct {
	cartStore
}

func (s *blindAddStore) HasItem(ctx context.Context, cartID, movieID uuid.UUID) (bool, error) {
	return false, nil
}

func TestAddItemConcurrentDuplicateMapsToValidation(t *testing.T) {
	conn := setupCartTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(&blindAddStore{cartStore: repo}, movies.NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	userID := uuid.New()

	movie := seedCartMovie(t, conn, "Raced", 9.99, true)

	_, err = svc.AddItem(ctx, userID, movie.ID)
	require.NoError(t, err)

	// The pre-check sees nothing, so the insert itself trips the
	// (cart_id, movie_id) unique index.
	_, err = svc.AddItem(ctx, userID, movie.ID)
	assertCode(t, err, pkgerrors.CodeValidation)

	var count int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAddItemRejectsUnavailableMovie(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)

	movie := seedCartMovie(t, conn, "Gone", 9.99, false)

	_, err := svc.AddItem(context.Background(), uuid.New(), movie.ID)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestAddItemRejectsUnknownMovie(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddItemRejectsAlreadyPurchasedMovie(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	movie := seedCartMovie(t, conn, "Owned", 9.99, true)

	now := time.Now().UTC()
	order := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      enums.OrderStatusPaid,
		TotalAmount: movie.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, conn.Create(order).Error)
	require.NoError(t, conn.Create(&models.OrderItem{
		ID:           uuid.New(),
		OrderID:      order.ID,
		MovieID:      movie.ID,
		MovieTitle:   movie.Title,
		PriceAtOrder: movie.Price,
		CreatedAt:    now,
	}).Error)

	_, err := svc.AddItem(ctx, userID, movie.ID)
	assertCode(t, err, pkgerrors.CodeValidation)

	// Ownership is per user; other accounts can still buy it.
	_, err = svc.AddItem(ctx, uuid.New(), movie.ID)
	require.NoError(t, err)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	movie := seedCartMovie(t, conn, "Transient", 5.00, true)

	_, err := svc.AddItem(ctx, userID, movie.ID)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, userID, movie.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	cart, err = svc.RemoveItem(ctx, userID, movie.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestClearEmptiesCart(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	first := seedCartMovie(t, conn, "One", 1.00, true)
	second := seedCartMovie(t, conn, "Two", 2.00, true)

	_, err := svc.AddItem(ctx, userID, first.ID)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, second.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, userID))

	cart, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
