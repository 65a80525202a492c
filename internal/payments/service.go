package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/pkg/config"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/pagination"
)

// Service starts Stripe payments and exposes payment history.
type Service interface {
	Initiate(ctx context.Context, userID, orderID uuid.UUID) (*InitiateResponse, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*ListResult, error)
	ListAdmin(ctx context.Context, query ListQuery) (*ListResult, error)
}

type service struct {
	repo     *Repository
	orders   *orders.Repository
	stripe   StripePaymentClient
	currency string
	logg     *logger.Logger
}

// ServiceParams collects the payment service dependencies.
type ServiceParams struct {
	Repo   *Repository
	Orders *orders.Repository
	Stripe StripePaymentClient
	Config config.StripeConfig
	Logger *logger.Logger
}

// NewService constructs the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe client is required")
	}
	currency := params.Config.Currency
	if currency == "" {
		currency = "usd"
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		stripe:   params.Stripe,
		currency: currency,
		logg:     params.Logger,
	}, nil
}

// Initiate opens a Stripe payment intent for a pending order owned by
// the caller. The amount is the frozen order total; the order id rides
// along as metadata so the webhook can settle it later.
func (s *service) Initiate(ctx context.Context, userID, orderID uuid.UUID) (*InitiateResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot be paid", order.Status))
	}

	amountCents := order.TotalAmount.Shift(2).IntPart()
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("user_id", userID.String())

	intent, err := s.stripe.CreateIntent(ctx, params)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, fmt.Sprintf("stripe payment intent failed for order %s", order.ID), err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment processor unavailable")
	}

	return &InitiateResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          order.TotalAmount,
		Currency:        s.currency,
	}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*ListResult, error) {
	result, err := s.repo.List(ctx, ListQuery{Pagination: page, UserID: &userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return result, nil
}

func (s *service) ListAdmin(ctx context.Context, query ListQuery) (*ListResult, error) {
	if query.Status != nil && !query.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status")
	}
	result, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return result, nil
}
