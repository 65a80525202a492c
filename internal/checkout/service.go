package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/internal/cart"
	"github.com/moviegate/moviegate-backend/internal/movies"
	"github.com/moviegate/moviegate-backend/internal/orders"
	"github.com/moviegate/moviegate-backend/internal/users"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/outbox/payloads"
)

// Service converts a cart into a pending order.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*orders.OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx     txRunner
	carts  *cart.Repository
	movies *movies.Repository
	orders *orders.Repository
	users  *users.Repository
	outbox eventEmitter
}

// ServiceParams collects the checkout dependencies.
type ServiceParams struct {
	DB     txRunner
	Carts  *cart.Repository
	Movies *movies.Repository
	Orders *orders.Repository
	Users  *users.Repository
	Outbox eventEmitter
}

// NewService constructs the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Movies == nil {
		return nil, fmt.Errorf("movies repository is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	return &service{
		tx:     params.DB,
		carts:  params.Carts,
		movies: params.Movies,
		orders: params.Orders,
		users:  params.Users,
		outbox: params.Outbox,
	}, nil
}

// Checkout snapshots every cart line into a pending order and empties
// the cart, all inside one transaction. A single rejected movie aborts
// the whole attempt and leaves the cart untouched.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID) (*orders.OrderDTO, error) {
	var dto *orders.OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		movieRepo := s.movies.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)
		userRepo := s.users.WithTx(tx)

		userCart, err := cartRepo.GetOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		loaded, err := cartRepo.GetWithItems(ctx, userCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
		}
		if len(loaded.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		movieIDs := make([]uuid.UUID, 0, len(loaded.Items))
		for _, item := range loaded.Items {
			movieIDs = append(movieIDs, item.MovieID)
		}

		// Cart contents can go stale; the catalog row at checkout time
		// is authoritative for both availability and price.
		current, err := movieRepo.FindByIDs(ctx, movieIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load movies")
		}
		byID := make(map[uuid.UUID]*models.Movie, len(current))
		for i := range current {
			byID[current[i].ID] = &current[i]
		}

		var rejected []uuid.UUID
		for _, id := range movieIDs {
			movie, ok := byID[id]
			if !ok || !movie.Available {
				rejected = append(rejected, id)
			}
		}
		if len(rejected) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "some cart items are no longer available").
				WithDetails(map[string]any{"movie_ids": rejected})
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(movieIDs))
		for _, id := range movieIDs {
			movie := byID[id]
			total = total.Add(movie.Price)
			items = append(items, models.OrderItem{
				MovieID:      movie.ID,
				MovieTitle:   movie.Title,
				PriceAtOrder: movie.Price,
			})
		}

		order, err := orderRepo.Create(ctx, &models.Order{
			UserID:      userID,
			Status:      enums.OrderStatusPending,
			TotalAmount: total,
			Items:       items,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if err := cartRepo.Clear(ctx, loaded.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.OrderPlacedEvent{
				OrderID:     order.ID,
				UserID:      userID,
				Email:       user.Email,
				TotalAmount: total,
				ItemCount:   len(items),
			},
		}); err != nil {
			return err
		}

		dto = orders.FromModel(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}
