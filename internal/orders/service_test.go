package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/internal/users"
	dbpkg "github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/pagination"
)

func newOrderService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	client := dbpkg.NewFromConn(conn)
	svc, err := NewService(ServiceParams{
		DB:     client,
		Repo:   NewRepository(conn),
		Users:  users.NewRepository(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	return svc
}

func seedOrderOwner(t *testing.T, conn *gorm.DB, email string) *models.User {
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

func outboxEventTypes(t *testing.T, conn *gorm.DB) []string {
	t.Helper()
	var types []string
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Order("created_at ASC").Pluck("event_type", &types).Error)
	return types
}

func TestCancelPendingOrder(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()

	owner := seedOrderOwner(t, conn, "owner@example.com")
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending, time.Now().UTC())

	dto, err := svc.Cancel(ctx, owner.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, dto.Status)

	assert.Equal(t, []string{string(enums.EventOrderCanceled)}, outboxEventTypes(t, conn))
}

func TestCancelCanceledOrderIsNoOp(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()

	owner := seedOrderOwner(t, conn, "owner@example.com")
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusCanceled, time.Now().UTC())

	dto, err := svc.Cancel(ctx, owner.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, dto.Status)

	// No second cancellation event.
	assert.Empty(t, outboxEventTypes(t, conn))
}

func TestCancelPaidOrderConflicts(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()

	owner := seedOrderOwner(t, conn, "owner@example.com")
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPaid, time.Now().UTC())

	_, err := svc.Cancel(ctx, owner.ID, order.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestCancelForeignOrderLooksMissing(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()

	owner := seedOrderOwner(t, conn, "owner@example.com")
	stranger := seedOrderOwner(t, conn, "stranger@example.com")
	order := seedOrder(t, conn, owner.ID, enums.OrderStatusPending, time.Now().UTC())

	_, err := svc.Cancel(ctx, stranger.ID, order.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	loaded, err := NewRepository(conn).FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, loaded.Status)
}

func TestGetForUserScopesToOwner(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()

	owner := seedOrderOwner(t, conn, "owner@example.com")
	stranger := seedOrderOwner(t, conn, "stranger@example.com")

	order := &models.Order{
		UserID:      owner.ID,
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.NewFromFloat(9.99),
		Items: []models.OrderItem{
			{MovieID: uuid.New(), MovieTitle: "Snapshot", PriceAtOrder: decimal.NewFromFloat(9.99)},
		},
	}
	_, err := NewRepository(conn).Create(ctx, order)
	require.NoError(t, err)

	dto, err := svc.GetForUser(ctx, owner.ID, order.ID)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "Snapshot", dto.Items[0].MovieTitle)

	_, err = svc.GetForUser(ctx, stranger.ID, order.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestListForUserOnlyReturnsOwnOrders(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrderService(t, conn)
	ctx := context.Background()

	owner := seedOrderOwner(t, conn, "owner@example.com")
	other := seedOrderOwner(t, conn, "other@example.com")
	base := time.Now().UTC().Truncate(time.Second)

	seedOrder(t, conn, owner.ID, enums.OrderStatusPending, base)
	seedOrder(t, conn, owner.ID, enums.OrderStatusPaid, base.Add(time.Minute))
	seedOrder(t, conn, other.ID, enums.OrderStatusPending, base.Add(2*time.Minute))

	result, err := svc.ListForUser(ctx, owner.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, result.Orders, 2)
	for _, o := range result.Orders {
		assert.Equal(t, owner.ID, o.UserID)
	}
}

func TestListAdminRejectsUnknownStatus(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrderService(t, conn)

	bogus := enums.OrderStatus("shipped")
	_, err := svc.ListAdmin(context.Background(), ListQuery{Status: &bogus})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
