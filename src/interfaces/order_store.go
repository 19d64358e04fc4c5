package interfaces

import (
	"context"

	"trade-orders/src/models"
)

// -----------------------------------------------------------------------------
// IOrderStore defines the contract for order persistence.
// -----------------------------------------------------------------------------

//go:generate mockgen -source order_store.go -destination=mock/order_store_mock.go -package=mock
type IOrderStore interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and creates the schema when missing.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Insert persists a new order; the store assigns ID and CreatedAt.
	Insert(ctx context.Context, input models.MOrderInput) (*models.MOrder, error)

	// -----------------------------------------------------------------------------

	// GetByID returns (nil, nil) when no order has the id.
	GetByID(ctx context.Context, id int64) (*models.MOrder, error)

	// -----------------------------------------------------------------------------

	// List returns up to limit orders after skipping skip, ordered by id ascending.
	List(ctx context.Context, skip, limit int) ([]models.MOrder, error)

	// -----------------------------------------------------------------------------

	// UpdateByID overwrites the mutable fields and refreshes UpdatedAt.
	// Returns (nil, nil) when no order has the id.
	UpdateByID(ctx context.Context, id int64, input models.MOrderInput) (*models.MOrder, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
