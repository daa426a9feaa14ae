package entity

import (
	"time"

	"github.com/google/uuid"
)

// Order is the read-only projection of a sales order that returns refer to.
// It is fed by the order system; the engine only reads it.
type Order struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	CustomerID  uuid.UUID
	PlacedAt    time.Time
	DeliveredAt *time.Time
	ItemIDs     []string
}

// HasItem reports whether orderItemID belongs to the order.
func (o *Order) HasItem(orderItemID string) bool {
	for _, id := range o.ItemIDs {
		if id == orderItemID {
			return true
		}
	}
	return false
}

// WindowStart is the instant return windows are measured from.
func (o *Order) WindowStart() time.Time {
	if o.DeliveredAt != nil {
		return *o.DeliveredAt
	}
	return o.PlacedAt
}
