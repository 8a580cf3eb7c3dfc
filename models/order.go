package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusAssigned  OrderStatus = "ASSIGNED"
	OrderStatusPicked    OrderStatus = "PICKED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentMode string

const (
	PaymentModeCOD    PaymentMode = "COD"
	PaymentModeOnline PaymentMode = "ONLINE"
)

// Payment states stored on an order. Gateway states (CREATED, PENDING,
// COMPLETED, FAILED, CANCELLED) are stored verbatim; the rest are set locally.
const (
	PaymentStatePlaced          = "PLACED"
	PaymentStateCreated         = "CREATED"
	PaymentStatePending         = "PENDING"
	PaymentStateCompleted       = "COMPLETED"
	PaymentStateFailed          = "FAILED"
	PaymentStateCancelled       = "CANCELLED"
	PaymentStateRefundInitiated = "REFUND_INITIATED"
	PaymentStateRefunded        = "REFUNDED"
	PaymentStateRefundFailed    = "REFUND_FAILED"
)

// Address is the delivery destination captured at checkout.
type Address struct {
	Line    string  `json:"line,omitempty" bson:"line,omitempty"`
	PinCode string  `json:"pinCode" bson:"pin_code"`
	Lat     float64 `json:"lat" bson:"lat"`
	Lng     float64 `json:"lng" bson:"lng"`
}

// AppliedOffer is the offer snapshot stored on a line item together with the tier it came from.
type AppliedOffer struct {
	Kind   OfferKind `json:"type" bson:"kind"`
	Value  float64   `json:"value" bson:"value"`
	Source string    `json:"source" bson:"source"`
}

type OrderItem struct {
	DishID            string        `json:"id" bson:"dish_id"`
	Qty               int           `json:"qty" bson:"qty"`
	Name              string        `json:"name" bson:"name"`
	BasePrice         float64       `json:"basePrice" bson:"base_price"`
	FinalPricePerUnit float64       `json:"finalPricePerUnit" bson:"final_price_per_unit"`
	AppliedOffer      *AppliedOffer `json:"appliedOffer,omitempty" bson:"applied_offer,omitempty"`
}

// Order is one restaurant group of a checkout. Price fields are snapshots taken at placement.
type Order struct {
	ID               string      `json:"id" bson:"_id"`
	MerchantOrderID  string      `json:"merchantOrderId,omitempty" bson:"merchant_order_id,omitempty"`
	UserID           string      `json:"userId" bson:"user_id"`
	RestaurantID     string      `json:"restaurantId" bson:"restaurant_id"`
	Items            []OrderItem `json:"items" bson:"items"`
	ItemTotal        float64     `json:"itemTotal" bson:"item_total"`
	DeliveryFee      float64     `json:"delivery" bson:"delivery_fee"`
	GST              float64     `json:"gst" bson:"gst"`
	PlatformFee      float64     `json:"platformFee" bson:"platform_fee"`
	Total            float64     `json:"total" bson:"total"`
	Address          Address     `json:"address" bson:"address"`
	PaymentMode      PaymentMode `json:"paymentMode" bson:"payment_mode"`
	PaymentState     string      `json:"paymentState" bson:"payment_state"`
	Status           OrderStatus `json:"status" bson:"status"`
	AssignedRiderID  string      `json:"assignedRiderId,omitempty" bson:"assigned_rider_id,omitempty"`
	TransactionID    string      `json:"transactionId,omitempty" bson:"transaction_id,omitempty"`
	RefundID         string      `json:"refundId,omitempty" bson:"refund_id,omitempty"`
	MerchantRefundID string      `json:"merchantRefundId,omitempty" bson:"merchant_refund_id,omitempty"`
	ExpireAt         *time.Time  `json:"expireAt,omitempty" bson:"expire_at,omitempty"`
	CreatedAt        time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time   `json:"updatedAt" bson:"updated_at"`
	CancelledAt      *time.Time  `json:"cancelledAt,omitempty" bson:"cancelled_at,omitempty"`
	PickedUpAt       *time.Time  `json:"pickedUpAt,omitempty" bson:"picked_up_at,omitempty"`
	DeliveredAt      *time.Time  `json:"deliveredAt,omitempty" bson:"delivered_at,omitempty"`
}

// StatusChange is one row of an order's status history.
type StatusChange struct {
	OrderID string      `json:"orderId" bson:"order_id"`
	From    OrderStatus `json:"from" bson:"from"`
	To      OrderStatus `json:"to" bson:"to"`
	ActorID string      `json:"actorId" bson:"actor_id"`
	At      time.Time   `json:"at" bson:"at"`
}
