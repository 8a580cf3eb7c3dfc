package services

import (
	"context"
	"errors"
	"fmt"

	"food-delivery/models"
	"food-delivery/payment"
	"food-delivery/store"
)

const (
	gatewayActor = "payment-gateway"
	// SyncStateSuccess is reported when the gateway says the payment completed.
	SyncStateSuccess = "SUCCESS"
)

type SyncResult struct {
	State  string
	Orders []*models.Order
}

// SyncPaymentStatus polls the gateway for a checkout and applies the result
// to every order of it that is still PENDING. Orders that already moved on
// are left alone, so repeated syncs are harmless.
func (s *Service) SyncPaymentStatus(ctx context.Context, merchantOrderID string) (*SyncResult, error) {
	if merchantOrderID == "" {
		return nil, newErr(KindValidation, ReasonInvalidRequest, "merchant order id is required")
	}
	existing, err := s.store.ListOrdersByMerchantOrderID(ctx, merchantOrderID)
	if err != nil {
		return nil, storeErr(err, ReasonOrderNotFound, "orders for "+merchantOrderID)
	}
	if len(existing) == 0 {
		return nil, newErr(KindNotFound, ReasonOrderNotFound, "no orders for merchant order %s", merchantOrderID)
	}
	if s.gateway == nil {
		return nil, newErr(KindUpstream, ReasonPaymentGateway, "online payments are not configured")
	}
	resp, err := s.gateway.OrderStatus(ctx, merchantOrderID)
	if err != nil {
		return nil, upstreamErr(ReasonPaymentGateway, err, "fetch payment status")
	}
	status := statusFromPaymentSync(resp.State)

	var result, placed []*models.Order
	err = s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		result, placed = nil, nil
		orders, err := repo.ListOrdersByMerchantOrderID(ctx, merchantOrderID)
		if err != nil {
			return err
		}
		for _, o := range orders {
			if o.Status != models.OrderStatusPending {
				result = append(result, o)
				continue
			}
			state := resp.State
			patch := store.OrderPatch{PaymentState: &state, UpdatedAt: s.now()}
			var updated *models.Order
			if status == models.OrderStatusPending {
				updated, err = repo.UpdateOrder(ctx, o.ID, []models.OrderStatus{models.OrderStatusPending}, patch)
				err = storeErr(err, ReasonOrderNotFound, "order "+o.ID)
			} else {
				updated, err = s.transition(ctx, repo, o, gatewayActor, status, patch, models.OrderStatusPending)
			}
			switch {
			case KindOf(err) == KindConflict:
				result = append(result, o)
				continue
			case err != nil:
				return err
			}
			result = append(result, updated)
			if updated.Status == models.OrderStatusPlaced {
				placed = append(placed, updated)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("payment synced", "merchant_order_id", merchantOrderID, "state", resp.State, "placed", len(placed))

	if resp.State != payment.StateCompleted {
		return &SyncResult{State: resp.State, Orders: result}, nil
	}
	pushes := make([][]outbound, 0, len(placed))
	for _, o := range placed {
		pushes = append(pushes, s.newOrderPush(ctx, o))
	}
	s.deliver(ctx, pushes...)
	return &SyncResult{State: SyncStateSuccess, Orders: result}, nil
}

// initiateRefund requests a refund of the order total and returns the patch
// recording it.
func (s *Service) initiateRefund(ctx context.Context, o *models.Order, merchantRefundID string) (store.OrderPatch, error) {
	if s.gateway == nil {
		return store.OrderPatch{}, newErr(KindUpstream, ReasonRefundFailed, "online payments are not configured")
	}
	resp, err := s.gateway.Refund(ctx, payment.RefundRequest{
		MerchantRefundID:        merchantRefundID,
		OriginalMerchantOrderID: o.MerchantOrderID,
		AmountMinor:             toMinor(o.Total),
	})
	if err != nil {
		return store.OrderPatch{}, upstreamErr(ReasonRefundFailed, err, "initiate refund for order %s", o.ID)
	}
	state := paymentStateFromRefund(resp.State)
	refundID := resp.RefundID
	return store.OrderPatch{
		PaymentState:     &state,
		RefundID:         &refundID,
		MerchantRefundID: &merchantRefundID,
		UpdatedAt:        s.now(),
	}, nil
}

type RefundStatusResult struct {
	Order       *models.Order
	RefundState string
}

// RefundStatus polls the refund recorded on an order and stores the mapped
// payment state. An empty userID skips the ownership check.
func (s *Service) RefundStatus(ctx context.Context, userID, orderID string) (*RefundStatusResult, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, newErr(KindForbidden, ReasonNotOrderOwner, "order %s belongs to another user", orderID)
	}
	if o.MerchantRefundID == "" {
		return nil, newErr(KindValidation, ReasonNoRefund, "order %s has no refund", orderID)
	}
	if s.gateway == nil {
		return nil, newErr(KindUpstream, ReasonPaymentGateway, "online payments are not configured")
	}
	resp, err := s.gateway.RefundStatus(ctx, o.MerchantRefundID)
	if err != nil {
		return nil, upstreamErr(ReasonPaymentGateway, err, "fetch refund status")
	}
	state := paymentStateFromRefundStatus(resp.State)
	updated, err := s.store.UpdateOrder(ctx, orderID, nil, store.OrderPatch{PaymentState: &state, UpdatedAt: s.now()})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, storeErr(err, ReasonOrderNotFound, "order "+orderID)
		}
		return nil, err
	}
	return &RefundStatusResult{Order: updated, RefundState: resp.State}, nil
}

// SyncPaymentStatusForUser is SyncPaymentStatus limited to the customer who placed the checkout.
func (s *Service) SyncPaymentStatusForUser(ctx context.Context, userID, merchantOrderID string) (*SyncResult, error) {
	if merchantOrderID == "" {
		return nil, newErr(KindValidation, ReasonInvalidRequest, "merchant order id is required")
	}
	orders, err := s.store.ListOrdersByMerchantOrderID(ctx, merchantOrderID)
	if err != nil {
		return nil, fmt.Errorf("orders for %s: %w", merchantOrderID, err)
	}
	if len(orders) == 0 {
		return nil, newErr(KindNotFound, ReasonOrderNotFound, "no orders for merchant order %s", merchantOrderID)
	}
	if orders[0].UserID != userID {
		return nil, newErr(KindForbidden, ReasonNotOrderOwner, "merchant order %s belongs to another user", merchantOrderID)
	}
	return s.SyncPaymentStatus(ctx, merchantOrderID)
}
