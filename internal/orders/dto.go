package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	"github.com/moviegate/moviegate-backend/pkg/pagination"
)

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Items       []OrderItemDTO    `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// OrderItemDTO is the frozen catalog snapshot taken at checkout.
type OrderItemDTO struct {
	MovieID      uuid.UUID       `json:"movie_id"`
	MovieTitle   string          `json:"movie_title"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
}

// ListQuery filters order listings. UserID and Status are optional and
// only honored on the admin surface.
type ListQuery struct {
	Pagination pagination.Params
	UserID     *uuid.UUID
	Status     *enums.OrderStatus
}

// ListResult is one cursor page of orders.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// FromModel converts the persistence shape into the API shape.
func FromModel(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			MovieID:      item.MovieID,
			MovieTitle:   item.MovieTitle,
			PriceAtOrder: item.PriceAtOrder,
		})
	}
	return dto
}
