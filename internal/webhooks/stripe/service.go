package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/internal/payments"
	"github.com/moviegate/moviegate-backend/internal/users"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams collects the webhook service dependencies.
type ServiceParams struct {
	TransactionRunner txRunner
	Orders            *orders.Repository
	Payments          *payments.Repository
	Users             *users.Repository
	Outbox            eventEmitter
	Logger            *logger.Logger
}

// Service settles orders from Stripe payment intent events.
type Service struct {
	txRunner txRunner
	orders   *orders.Repository
	payments *payments.Repository
	users    *users.Repository
	outbox   eventEmitter
	logg     *logger.Logger
}

// NewService constructs the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	return &Service{
		txRunner: params.TransactionRunner,
		orders:   params.Orders,
		payments: params.Payments,
		users:    params.Users,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

// HandleEvent routes a verified Stripe event. Event types outside the
// payment intent lifecycle are acknowledged without action so Stripe
// stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.settleOrder(ctx, intent)
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.failOrder(ctx, intent, failureReason(intent))
	default:
		if s.logg != nil {
			s.logg.Info(ctx, fmt.Sprintf("ignoring stripe event %s", event.Type))
		}
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func orderIDFromIntent(intent *stripe.PaymentIntent) (uuid.UUID, error) {
	raw, ok := intent.Metadata["order_id"]
	if !ok || raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id metadata missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order_id metadata malformed")
	}
	return id, nil
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return string(intent.Status)
}

// settleOrder moves the order to paid and records the payment. Replays
// and events for orders already settled are absorbed silently.
func (s *Service) settleOrder(ctx context.Context, intent *stripe.PaymentIntent) error {
	orderID, err := orderIDFromIntent(intent)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		paymentRepo := s.payments.WithTx(tx)

		order, changed, err := orders.Transition(ctx, orderRepo, orderID, enums.OrderStatusPaid)
		if err != nil {
			return s.absorbTerminal(ctx, err, intent.ID)
		}
		if !changed {
			return nil
		}

		externalID := intent.ID
		items := make([]models.PaymentItem, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, models.PaymentItem{
				OrderItemID:    item.ID,
				PriceAtPayment: item.PriceAtOrder,
			})
		}
		payment, err := paymentRepo.Create(ctx, &models.Payment{
			OrderID:           order.ID,
			UserID:            order.UserID,
			Status:            enums.PaymentStatusSuccessful,
			Amount:            order.TotalAmount,
			ExternalPaymentID: &externalID,
			Items:             items,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
		}

		user, err := s.users.WithTx(tx).FindByID(ctx, order.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order owner")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				Email:     user.Email,
				PaymentID: payment.ID,
				Amount:    order.TotalAmount,
			},
		})
	})
}

// failOrder cancels the order after a declined or abandoned payment.
func (s *Service) failOrder(ctx context.Context, intent *stripe.PaymentIntent, reason string) error {
	orderID, err := orderIDFromIntent(intent)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		paymentRepo := s.payments.WithTx(tx)

		order, changed, err := orders.Transition(ctx, orderRepo, orderID, enums.OrderStatusCanceled)
		if err != nil {
			return s.absorbTerminal(ctx, err, intent.ID)
		}
		if !changed {
			return nil
		}

		externalID := intent.ID
		if _, err := paymentRepo.Create(ctx, &models.Payment{
			OrderID:           order.ID,
			UserID:            order.UserID,
			Status:            enums.PaymentStatusCanceled,
			Amount:            order.TotalAmount,
			ExternalPaymentID: &externalID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record failed payment")
		}

		user, err := s.users.WithTx(tx).FindByID(ctx, order.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order owner")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentFailedEvent{
				OrderID:           order.ID,
				UserID:            order.UserID,
				Email:             user.Email,
				ExternalPaymentID: intent.ID,
				Reason:            reason,
			},
		})
	})
}

// absorbTerminal acknowledges transitions that lost against a terminal
// status. Stripe retries on errors, and a retry cannot change a settled
// order.
func (s *Service) absorbTerminal(ctx context.Context, err error, intentID string) error {
	appErr := pkgerrors.As(err)
	if appErr != nil && appErr.Code() == pkgerrors.CodeStateConflict {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("stripe intent %s hit settled order: %s", intentID, appErr.Message()))
		}
		return nil
	}
	return err
}
