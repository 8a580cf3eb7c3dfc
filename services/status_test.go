package services

import (
	"testing"

	"food-delivery/models"
)

func TestValidStatusTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderStatusPending, models.OrderStatusPlaced, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusPending, models.OrderStatusAccepted, false},
		{models.OrderStatusPlaced, models.OrderStatusAccepted, true},
		{models.OrderStatusPlaced, models.OrderStatusCancelled, true},
		{models.OrderStatusPlaced, models.OrderStatusAssigned, false},
		{models.OrderStatusAccepted, models.OrderStatusAssigned, true},
		{models.OrderStatusAccepted, models.OrderStatusCancelled, true},
		{models.OrderStatusAssigned, models.OrderStatusPicked, true},
		{models.OrderStatusAssigned, models.OrderStatusCancelled, false},
		{models.OrderStatusPicked, models.OrderStatusDelivered, true},
		{models.OrderStatusPicked, models.OrderStatusAssigned, false},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusPlaced, false},
		{"", models.OrderStatusPlaced, false},
	}
	for _, tt := range tests {
		if got := ValidStatusTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidStatusTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPaymentStateMapping(t *testing.T) {
	initial := map[string]models.OrderStatus{
		"COMPLETED": models.OrderStatusPlaced,
		"PENDING":   models.OrderStatusPending,
		"CREATED":   models.OrderStatusPending,
		"FAILED":    models.OrderStatusCancelled,
		"WEIRD":     models.OrderStatusCancelled,
	}
	for state, want := range initial {
		if got := statusFromInitialPayment(state); got != want {
			t.Errorf("statusFromInitialPayment(%s) = %s, want %s", state, got, want)
		}
	}
	sync := map[string]models.OrderStatus{
		"COMPLETED": models.OrderStatusPlaced,
		"FAILED":    models.OrderStatusCancelled,
		"PENDING":   models.OrderStatusPending,
		"CREATED":   models.OrderStatusPending,
	}
	for state, want := range sync {
		if got := statusFromPaymentSync(state); got != want {
			t.Errorf("statusFromPaymentSync(%s) = %s, want %s", state, got, want)
		}
	}
	if got := paymentStateFromRefund("PENDING"); got != models.PaymentStateRefundInitiated {
		t.Errorf("refund PENDING -> %s", got)
	}
	if got := paymentStateFromRefund("COMPLETED"); got != models.PaymentStateFailed {
		t.Errorf("refund COMPLETED -> %s", got)
	}
	refund := map[string]string{
		"COMPLETED": models.PaymentStateRefunded,
		"PENDING":   models.PaymentStateRefundInitiated,
		"FAILED":    models.PaymentStateRefundFailed,
	}
	for state, want := range refund {
		if got := paymentStateFromRefundStatus(state); got != want {
			t.Errorf("paymentStateFromRefundStatus(%s) = %s, want %s", state, got, want)
		}
	}
}
