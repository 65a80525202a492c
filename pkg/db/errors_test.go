package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := errors.New(`ERROR: duplicate key value violates unique constraint "idx_cart_items_cart_movie" (SQLSTATE 23505)`)
	sqliteErr := errors.New("UNIQUE constraint failed: cart_items.cart_id, cart_items.movie_id")

	assert.True(t, IsUniqueViolation(pgErr, "idx_cart_items_cart_movie"))
	assert.True(t, IsUniqueViolation(pgErr, ""))
	// The sqlite driver never mentions the index name, only the columns.
	assert.True(t, IsUniqueViolation(sqliteErr, "idx_cart_items_cart_movie"))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), "idx_cart_items_cart_movie"))
	assert.False(t, IsUniqueViolation(nil, ""))
}
