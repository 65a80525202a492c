package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
)

// Repository persists carts and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// GetOrCreate returns the user's cart, provisioning an empty one on
// first access.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = models.Cart{ID: uuid.New(), UserID: userID}
	if createErr := r.db.WithContext(ctx).Create(&cart).Error; createErr != nil {
		// Lost a provisioning race; the winner's row is authoritative.
		var existing models.Cart
		if findErr := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; findErr == nil {
			return &existing, nil
		}
		return nil, createErr
	}
	return &cart, nil
}

// GetWithItems loads the cart and its lines with movie snapshots, oldest
// line first.
func (r *Repository) GetWithItems(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("added_at ASC")
		}).
		Preload("Items.Movie").
		First(&cart, "id = ?", cartID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// HasItem reports whether the movie is already in the cart.
func (r *Repository) HasItem(ctx context.Context, cartID, movieID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND movie_id = ?", cartID, movieID).
		Count(&count).Error
	return count > 0, err
}

// AddItem appends a movie line to the cart.
func (r *Repository) AddItem(ctx context.Context, cartID, movieID uuid.UUID) error {
	item := models.CartItem{ID: uuid.New(), CartID: cartID, MovieID: movieID}
	return r.db.WithContext(ctx).Create(&item).Error
}

// RemoveItem deletes the movie line if present and reports how many rows
// went away.
func (r *Repository) RemoveItem(ctx context.Context, cartID, movieID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND movie_id = ?", cartID, movieID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// Clear drops every line in the cart.
func (r *Repository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// HasPurchased reports whether the user already owns the movie through a
// paid order.
func (r *Repository) HasPurchased(ctx context.Context, userID, movieID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.movie_id = ?",
			userID, enums.OrderStatusPaid, movieID).
		Count(&count).Error
	return count > 0, err
}
