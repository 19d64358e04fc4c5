package interfaces

import (
	"context"

	"trade-orders/src/models"
)

// -----------------------------------------------------------------------------
// IEventPublisher forwards order lifecycle events to an external stream.
// -----------------------------------------------------------------------------

//go:generate mockgen -source event_publisher.go -destination=mock/event_publisher_mock.go -package=mock
type IEventPublisher interface {
	Publish(ctx context.Context, event models.MOrderEvent) error
	Close() error
}
