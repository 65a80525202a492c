package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds the pre-checkout selection. One cart per user.
type Cart struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Items []CartItem `gorm:"foreignKey:CartID"`
}

// CartItem references a movie in a cart. A movie appears at most once
// per cart, enforced by a composite unique index.
type CartItem struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CartID  uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index:idx_cart_items_cart_movie,unique,priority:1"`
	MovieID uuid.UUID `gorm:"column:movie_id;type:uuid;not null;index:idx_cart_items_cart_movie,unique,priority:2"`
	AddedAt time.Time `gorm:"column:added_at;autoCreateTime"`

	Movie *Movie `gorm:"foreignKey:MovieID"`
}
