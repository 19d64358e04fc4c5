package notification

import (
	"fmt"
	"strconv"
	"strings"

	"trade-orders/src/models"
)

// OrderCreatedMessage is pushed to every subscriber after an order is stored.
// It uses the submitted values, not the stored row.
func OrderCreatedMessage(in models.MOrderInput) string {
	return fmt.Sprintf("New order created: %s - %s - %d @ %s", in.Symbol, in.OrderType, in.Quantity, FormatPrice(in.Price))
}

// OrderUpdateMessage echoes an inbound subscriber payload to everyone.
func OrderUpdateMessage(payload string) string {
	return "Order update: " + payload
}

// FormatPrice renders a price the way clients already parse it:
// shortest round-trip digits, always with a fractional part (150.5, 900.0).
func FormatPrice(price float64) string {
	s := strconv.FormatFloat(price, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
