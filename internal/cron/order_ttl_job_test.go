package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/internal/users"
	dbpkg "github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/shopspring/decimal"
)

func setupOrderTTLDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
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

func newOrderTTLTestJob(t *testing.T, conn *gorm.DB) *orderTTLJob {
	t.Helper()
	jobIface, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		DB:     dbpkg.NewFromConn(conn),
		Orders: orders.NewRepository(conn),
		Users:  users.NewRepository(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	job, ok := jobIface.(*orderTTLJob)
	require.True(t, ok)
	return job
}

func seedTTLUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "irrelevant",
		Group:        enums.UserGroupUser,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func seedTTLOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      status,
		TotalAmount: decimal.NewFromFloat(19.99),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func orderStatus(t *testing.T, conn *gorm.DB, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, conn.First(&order, "id = ?", id).Error)
	return order.Status
}

func TestOrderTTLJobCancelsStalePendingOrders(t *testing.T) {
	conn := setupOrderTTLDB(t)
	job := newOrderTTLTestJob(t, conn)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	user := seedTTLUser(t, conn, "stale@example.com")
	stale := seedTTLOrder(t, conn, user.ID, enums.OrderStatusPending, now.Add(-72*time.Hour))
	fresh := seedTTLOrder(t, conn, user.ID, enums.OrderStatusPending, now.Add(-time.Hour))
	paid := seedTTLOrder(t, conn, user.ID, enums.OrderStatusPaid, now.Add(-90*time.Hour))

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, enums.OrderStatusCanceled, orderStatus(t, conn, stale.ID))
	assert.Equal(t, enums.OrderStatusPending, orderStatus(t, conn, fresh.ID))
	assert.Equal(t, enums.OrderStatusPaid, orderStatus(t, conn, paid.ID))

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCanceled, events[0].EventType)
	assert.Equal(t, stale.ID, events[0].AggregateID)
}

func TestOrderTTLJobIsIdempotentAcrossRuns(t *testing.T) {
	conn := setupOrderTTLDB(t)
	job := newOrderTTLTestJob(t, conn)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	user := seedTTLUser(t, conn, "stale@example.com")
	seedTTLOrder(t, conn, user.ID, enums.OrderStatusPending, now.Add(-72*time.Hour))

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
