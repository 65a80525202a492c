package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
)

// CartDTO is the API shape of a user's cart.
type CartDTO struct {
	ID         uuid.UUID       `json:"id"`
	Items      []CartItemDTO   `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CartItemDTO is a cart line with the current catalog snapshot of the
// movie. Prices here are informational; the durable snapshot happens at
// checkout.
type CartItemDTO struct {
	MovieID   uuid.UUID       `json:"movie_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	PosterKey *string         `json:"poster_key,omitempty"`
	AddedAt   time.Time       `json:"added_at"`
}

func fromModel(cart *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:         cart.ID,
		Items:      make([]CartItemDTO, 0, len(cart.Items)),
		TotalPrice: decimal.Zero,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}
	for i := range cart.Items {
		item := &cart.Items[i]
		line := CartItemDTO{
			MovieID: item.MovieID,
			AddedAt: item.AddedAt,
		}
		if item.Movie != nil {
			line.Title = item.Movie.Title
			line.Price = item.Movie.Price
			line.Available = item.Movie.Available
			line.PosterKey = item.Movie.PosterKey
			dto.TotalPrice = dto.TotalPrice.Add(item.Movie.Price)
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}
