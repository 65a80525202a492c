package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/internal/payments"
	"github.com/moviegate/moviegate-backend/internal/users"
	dbpkg "github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE payments (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			amount TEXT NOT NULL,
			external_payment_id TEXT UNIQUE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE payment_items (
			id TEXT PRIMARY KEY,
			payment_id TEXT NOT NULL,
			order_item_id TEXT NOT NULL,
			price_at_payment TEXT NOT NULL,
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

func newWebhookService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		TransactionRunner: dbpkg.NewFromConn(conn),
		Orders:            orders.NewRepository(conn),
		Payments:          payments.NewRepository(conn),
		Users:             users.NewRepository(conn),
		Outbox:            outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	return svc
}

func seedWebhookOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus) *models.Order {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("buyer-%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "irrelevant",
		Group:        enums.UserGroupUser,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(user).Error)

	order := &models.Order{
		UserID:      user.ID,
		Status:      status,
		TotalAmount: decimal.NewFromFloat(19.99),
		Items: []models.OrderItem{
			{MovieID: uuid.New(), MovieTitle: "Snapshot", PriceAtOrder: decimal.NewFromFloat(19.99)},
		},
	}
	_, err := orders.NewRepository(conn).Create(context.Background(), order)
	require.NoError(t, err)
	return order
}

func intentEvent(t *testing.T, eventType stripe.EventType, intentID string, orderID uuid.UUID) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":       intentID,
		"metadata": map[string]string{"order_id": orderID.String()},
	})
	require.NoError(t, err)
	return &stripe.Event{
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func webhookEventTypes(t *testing.T, conn *gorm.DB) []string {
	t.Helper()
	var types []string
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Order("created_at ASC").Pluck("event_type", &types).Error)
	return types
}

func TestPaymentIntentSucceededSettlesOrder(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookService(t, conn)
	ctx := context.Background()

	order := seedWebhookOrder(t, conn, enums.OrderStatusPending)

	err := svc.HandleEvent(ctx, intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_settle", order.ID))
	require.NoError(t, err)

	loaded, err := orders.NewRepository(conn).FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, loaded.Status)

	payment, err := payments.NewRepository(conn).FindByExternalID(ctx, "pi_settle")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccessful, payment.Status)
	assert.True(t, payment.Amount.Equal(decimal.NewFromFloat(19.99)))

	var itemCount int64
	require.NoError(t, conn.Model(&models.PaymentItem{}).Where("payment_id = ?", payment.ID).Count(&itemCount).Error)
	assert.EqualValues(t, 1, itemCount)

	assert.Equal(t, []string{string(enums.EventOrderPaid)}, webhookEventTypes(t, conn))
}

func TestPaymentIntentSucceededReplayIsNoOp(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookService(t, conn)
	ctx := context.Background()

	order := seedWebhookOrder(t, conn, enums.OrderStatusPending)
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_replay", order.ID)

	require.NoError(t, svc.HandleEvent(ctx, event))
	require.NoError(t, svc.HandleEvent(ctx, event))

	var paymentCount int64
	require.NoError(t, conn.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.EqualValues(t, 1, paymentCount)

	assert.Equal(t, []string{string(enums.EventOrderPaid)}, webhookEventTypes(t, conn))
}

func TestPaymentIntentFailedCancelsOrder(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookService(t, conn)
	ctx := context.Background()

	order := seedWebhookOrder(t, conn, enums.OrderStatusPending)

	err := svc.HandleEvent(ctx, intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, "pi_fail", order.ID))
	require.NoError(t, err)

	loaded, err := orders.NewRepository(conn).FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, loaded.Status)

	payment, err := payments.NewRepository(conn).FindByExternalID(ctx, "pi_fail")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCanceled, payment.Status)

	assert.Equal(t, []string{string(enums.EventPaymentFailed)}, webhookEventTypes(t, conn))
}

func TestSucceededAfterCancellationIsAbsorbed(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookService(t, conn)
	ctx := context.Background()

	order := seedWebhookOrder(t, conn, enums.OrderStatusCanceled)

	err := svc.HandleEvent(ctx, intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_late", order.ID))
	require.NoError(t, err)

	loaded, err := orders.NewRepository(conn).FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, loaded.Status)

	var paymentCount int64
	require.NoError(t, conn.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Zero(t, paymentCount)
	assert.Empty(t, webhookEventTypes(t, conn))
}

func TestMissingOrderMetadataIsRejected(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookService(t, conn)

	raw, err := json.Marshal(map[string]any{"id": "pi_orphan"})
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), &stripe.Event{
		Type: stripe.EventTypePaymentIntentSucceeded,
		Data: &stripe.EventData{Raw: raw},
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUndecodableIntentPayloadIsRejected(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookService(t, conn)

	err := svc.HandleEvent(context.Background(), &stripe.Event{
		Type: stripe.EventTypePaymentIntentSucceeded,
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id":`)},
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUnrelatedEventTypesAreAcknowledged(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookService(t, conn)

	err := svc.HandleEvent(context.Background(), &stripe.Event{
		Type: stripe.EventTypeChargeRefunded,
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	})
	require.NoError(t, err)
	assert.Empty(t, webhookEventTypes(t, conn))
}

func TestHandleEventValidatesEnvelope(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookService(t, conn)

	err := svc.HandleEvent(context.Background(), nil)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
