package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/outbox/payloads"
)

const (
	orderExpirationHours = 48
	orderExpiryBatchSize = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderUserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// OrderTTLJobParams configure the pending order expiry job.
type OrderTTLJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Orders      *orders.Repository
	Users       orderUserFinder
	Outbox      outboxEmitter
	ExpiryHours int
}

// NewOrderTTLJob builds the cron job that cancels orders whose payment
// window has lapsed.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	expiryHours := params.ExpiryHours
	if expiryHours <= 0 {
		expiryHours = orderExpirationHours
	}
	return &orderTTLJob{
		logg:        params.Logger,
		db:          params.DB,
		orders:      params.Orders,
		users:       params.Users,
		outbox:      params.Outbox,
		expiryHours: expiryHours,
		now:         time.Now,
	}, nil
}

type orderTTLJob struct {
	logg        *logger.Logger
	db          txRunner
	orders      *orders.Repository
	users       orderUserFinder
	outbox      outboxEmitter
	expiryHours int
	now         func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.expiryHours) * time.Hour)
	stale, err := j.orders.FindPendingBefore(ctx, cutoff, orderExpiryBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	count := 0
	for i := range stale {
		if err := j.expireOrder(ctx, &stale[i]); err != nil {
			return err
		}
		count++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"expiry_hours": j.expiryHours,
		"count":        count,
	})
	j.logg.Info(logCtx, "order expiry loop complete")
	return nil
}

func (j *orderTTLJob) expireOrder(ctx context.Context, stale *models.Order) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)

		order, changed, err := orders.Transition(ctx, repo, stale.ID, enums.OrderStatusCanceled)
		if err != nil {
			// A payment may settle the order between the scan and this
			// transaction; leave such rows alone.
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeStateConflict {
				return nil
			}
			return err
		}
		if !changed {
			return nil
		}

		user, err := j.users.FindByID(ctx, order.UserID)
		if err != nil {
			return fmt.Errorf("load order owner: %w", err)
		}

		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				Email:      user.Email,
				CanceledAt: j.now().UTC(),
				Reason:     "payment window expired",
			},
		})
	})
}
