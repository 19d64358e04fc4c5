package interfaces

import (
	"context"

	"trade-orders/src/models"
)

// -----------------------------------------------------------------------------
// IOrderService is what the transport layer calls for every order request.
// -----------------------------------------------------------------------------

type IOrderService interface {
	CreateOrder(ctx context.Context, input models.MOrderInput) (*models.MOrder, error)
	GetOrder(ctx context.Context, id int64) (*models.MOrder, error)
	ListOrders(ctx context.Context, skip, limit int) ([]models.MOrder, error)
	UpdateOrder(ctx context.Context, id int64, input models.MOrderInput) (*models.MOrder, error)
}
