package models

import "time"

type Rider struct {
	ID              string   `json:"id" bson:"_id"`
	Name            string   `json:"name" bson:"name"`
	IsAvailable     bool     `json:"isAvailable" bson:"is_available"`
	ServicePinCodes []string `json:"servicePinCodes" bson:"service_pin_codes"`
	PushToken       string   `json:"pushToken,omitempty" bson:"push_token,omitempty"`
	AvailableOrders []string `json:"availableOrders" bson:"available_orders"`
	CurrentOrders   []string `json:"currentOrders" bson:"current_orders"`
}

// Services reports whether pin is one of the rider's service zones.
func (r *Rider) Services(pin string) bool {
	for _, p := range r.ServicePinCodes {
		if p == pin {
			return true
		}
	}
	return false
}

// HasOffer reports whether orderID is currently offered to the rider.
func (r *Rider) HasOffer(orderID string) bool {
	for _, id := range r.AvailableOrders {
		if id == orderID {
			return true
		}
	}
	return false
}

type EntityKind string

const (
	EntityRestaurant EntityKind = "restaurant"
	EntityRider      EntityKind = "rider"
)

// Earnings is a per-entity ledger entry. Amounts are minor currency units.
type Earnings struct {
	EntityID   string     `json:"entityId" bson:"_id"`
	EntityKind EntityKind `json:"entityType" bson:"entity_kind"`
	Earnings   int64      `json:"earnings" bson:"earnings"`
	Payout     int64      `json:"payout" bson:"payout"`
	LastPayout *time.Time `json:"lastPayout,omitempty" bson:"last_payout,omitempty"`
}

// Balance is the amount still available for payout.
func (e *Earnings) Balance() int64 {
	return e.Earnings - e.Payout
}
