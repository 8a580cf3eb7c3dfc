package services

import (
	"food-delivery/models"
	"food-delivery/payment"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:  {models.OrderStatusPlaced, models.OrderStatusCancelled},
	models.OrderStatusPlaced:   {models.OrderStatusAccepted, models.OrderStatusCancelled},
	models.OrderStatusAccepted: {models.OrderStatusAssigned, models.OrderStatusCancelled},
	models.OrderStatusAssigned: {models.OrderStatusPicked},
	models.OrderStatusPicked:   {models.OrderStatusDelivered},
}

// ValidStatusTransition reports whether an order may move from one status to another.
func ValidStatusTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// statusFromInitialPayment derives the status of a freshly created online order.
func statusFromInitialPayment(state string) models.OrderStatus {
	switch state {
	case payment.StateCompleted:
		return models.OrderStatusPlaced
	case payment.StatePending, payment.StateCreated:
		return models.OrderStatusPending
	default:
		return models.OrderStatusCancelled
	}
}

// statusFromPaymentSync derives the status applied when the gateway is polled.
func statusFromPaymentSync(state string) models.OrderStatus {
	switch state {
	case payment.StateCompleted:
		return models.OrderStatusPlaced
	case payment.StateFailed:
		return models.OrderStatusCancelled
	default:
		return models.OrderStatusPending
	}
}

// paymentStateFromRefund maps the state returned when a refund is created.
func paymentStateFromRefund(state string) string {
	if state == payment.StatePending {
		return models.PaymentStateRefundInitiated
	}
	return models.PaymentStateFailed
}

// paymentStateFromRefundStatus maps a polled refund state.
func paymentStateFromRefundStatus(state string) string {
	switch state {
	case payment.StateCompleted:
		return models.PaymentStateRefunded
	case payment.StatePending:
		return models.PaymentStateRefundInitiated
	default:
		return models.PaymentStateRefundFailed
	}
}
