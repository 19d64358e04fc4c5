package models

import "time"

// OrderType is the side of a trade order.
type OrderType string

const (
	OrderTypeBuy  OrderType = "BUY"
	OrderTypeSell OrderType = "SELL"
)

// Valid reports whether t is one of the known sides.
func (t OrderType) Valid() bool {
	return t == OrderTypeBuy || t == OrderTypeSell
}

// MOrderInput is the client supplied part of an order, used for create and update.
type MOrderInput struct {
	Symbol    string    `json:"symbol" validate:"required"`
	Price     float64   `json:"price" validate:"gt=0"`
	Quantity  int64     `json:"quantity" validate:"gt=0"`
	OrderType OrderType `json:"order_type" validate:"required,oneof=BUY SELL"`
}

// MOrder represents the stored order.
type MOrder struct {
	ID        int64      `json:"id"`
	Symbol    string     `json:"symbol"`
	Price     float64    `json:"price"`
	Quantity  int64      `json:"quantity"`
	OrderType OrderType  `json:"order_type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Apply overwrites every mutable field with the input values.
func (o *MOrder) Apply(in MOrderInput) {
	o.Symbol = in.Symbol
	o.Price = in.Price
	o.Quantity = in.Quantity
	o.OrderType = in.OrderType
}

// -----------------------------------------------------------------------------
// Order events (Kafka)
// -----------------------------------------------------------------------------

const (
	EventOrderCreated = "order_created"
	EventOrderUpdated = "order_updated"
)

type MOrderEvent struct {
	Type       string    `json:"type"`
	Order      MOrder    `json:"order"`
	OccurredAt time.Time `json:"occurred_at"`
}
