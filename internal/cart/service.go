package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/moviegate/moviegate-backend/pkg/db"
	"github.com/moviegate/moviegate-backend/pkg/db/models"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
)

// Service exposes cart operations to the API layer.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, movieID uuid.UUID) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, movieID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type movieFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
}

type cartStore interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetWithItems(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	HasItem(ctx context.Context, cartID, movieID uuid.UUID) (bool, error)
	AddItem(ctx context.Context, cartID, movieID uuid.UUID) error
	RemoveItem(ctx context.Context, cartID, movieID uuid.UUID) (int64, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
	HasPurchased(ctx context.Context, userID, movieID uuid.UUID) (bool, error)
}

type service struct {
	repo   cartStore
	movies movieFinder
}

// NewService constructs the cart service.
func NewService(repo cartStore, movies movieFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if movies == nil {
		return nil, fmt.Errorf("movie finder is required")
	}
	return &service{repo: repo, movies: movies}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return s.loadDTO(ctx, cart.ID)
}

func (s *service) AddItem(ctx context.Context, userID, movieID uuid.UUID) (*CartDTO, error) {
	movie, err := s.movies.FindByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load movie")
	}
	if !movie.Available {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movie is not available for purchase")
	}

	purchased, err := s.repo.HasPurchased(ctx, userID, movieID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check purchase history")
	}
	if purchased {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movie already purchased")
	}

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	exists, err := s.repo.HasItem(ctx, cart.ID, movieID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cart item")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movie already in cart")
	}

	if err := s.repo.AddItem(ctx, cart.ID, movieID); err != nil {
		// A concurrent add can slip past the HasItem check; the unique
		// index on (cart_id, movie_id) settles it.
		if dbpkg.IsUniqueViolation(err, "idx_cart_items_cart_movie") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "movie already in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}

	return s.loadDTO(ctx, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, userID, movieID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	// Removing an absent movie is a no-op.
	if _, err := s.repo.RemoveItem(ctx, cart.ID, movieID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}

	return s.loadDTO(ctx, cart.ID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := s.repo.Clear(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) loadDTO(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}
	return fromModel(cart), nil
}
