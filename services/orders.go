package services

import (
	"context"
	"fmt"
	"strings"

	"food-delivery/models"
	"food-delivery/payment"
	"food-delivery/store"

	"github.com/shopspring/decimal"
)

type ItemInput struct {
	DishID string
	Qty    int
}

// GroupInput is the part of a checkout served by one restaurant.
type GroupInput struct {
	RestaurantID string
	Items        []ItemInput
}

type PlaceOrderInput struct {
	UserID      string
	Groups      []GroupInput
	Address     models.Address
	PaymentMode models.PaymentMode
}

type PlaceOrderResult struct {
	Orders []*models.Order
	// Set for online payments only.
	MerchantOrderID string
	GatewayOrderID  string
	PaymentToken    string
	PaymentState    string
}

func validatePlaceOrder(in PlaceOrderInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return newErr(KindValidation, ReasonInvalidRequest, "user id is required")
	}
	if len(in.Groups) == 0 {
		return newErr(KindValidation, ReasonInvalidRequest, "at least one restaurant group is required")
	}
	if in.Address.PinCode == "" {
		return newErr(KindValidation, ReasonInvalidRequest, "address pin code is required")
	}
	if in.PaymentMode != models.PaymentModeCOD && in.PaymentMode != models.PaymentModeOnline {
		return newErr(KindValidation, ReasonInvalidRequest, "payment mode must be COD or ONLINE")
	}
	for i, g := range in.Groups {
		if g.RestaurantID == "" {
			return newErr(KindValidation, ReasonInvalidRequest, "group %d: restaurant id is required", i)
		}
		if len(g.Items) == 0 {
			return newErr(KindValidation, ReasonInvalidRequest, "group %d: no items", i)
		}
		for _, it := range g.Items {
			if it.DishID == "" {
				return newErr(KindValidation, ReasonInvalidDish, "group %d: dish id is required", i)
			}
			if it.Qty <= 0 {
				return newErr(KindValidation, ReasonInvalidQuantity, "dish %s: quantity must be a positive integer", it.DishID)
			}
		}
	}
	return nil
}

// PlaceOrder prices every restaurant group, creates one order per group and,
// for online payment, opens a single gateway order covering all of them.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := validatePlaceOrder(in); err != nil {
		return nil, err
	}
	now := s.now()
	orders := make([]*models.Order, 0, len(in.Groups))
	for _, g := range in.Groups {
		o, err := s.priceGroup(ctx, g, in.Address)
		if err != nil {
			return nil, err
		}
		o.ID = s.newID()
		o.UserID = in.UserID
		o.Address = in.Address
		o.PaymentMode = in.PaymentMode
		o.CreatedAt = now
		o.UpdatedAt = now
		orders = append(orders, o)
	}

	res := &PlaceOrderResult{Orders: orders}
	switch in.PaymentMode {
	case models.PaymentModeCOD:
		for _, o := range orders {
			o.Status = models.OrderStatusPlaced
			o.PaymentState = models.PaymentStatePlaced
		}
		res.PaymentState = models.PaymentStatePlaced
	case models.PaymentModeOnline:
		if s.gateway == nil {
			return nil, newErr(KindUpstream, ReasonPaymentGateway, "online payments are not configured")
		}
		total := decimal.Zero
		for _, o := range orders {
			total = total.Add(decimal.NewFromFloat(o.Total))
		}
		merchantOrderID := s.newID()
		resp, err := s.gateway.CreateOrder(ctx, payment.CreateOrderRequest{
			MerchantOrderID: merchantOrderID,
			AmountMinor:     toMinor(total.InexactFloat64()),
			CallbackURL:     s.callbackURL,
		})
		if err != nil {
			return nil, upstreamErr(ReasonPaymentGateway, err, "create payment order")
		}
		status := statusFromInitialPayment(resp.State)
		for _, o := range orders {
			o.MerchantOrderID = merchantOrderID
			o.TransactionID = resp.OrderID
			o.PaymentState = resp.State
			o.Status = status
			o.ExpireAt = resp.Expiry()
		}
		res.MerchantOrderID = merchantOrderID
		res.GatewayOrderID = resp.OrderID
		res.PaymentToken = resp.Token
		res.PaymentState = resp.State
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		if err := repo.CreateOrders(ctx, orders); err != nil {
			return fmt.Errorf("create orders: %w", err)
		}
		for _, o := range orders {
			if err := repo.AppendStatusHistory(ctx, models.StatusChange{OrderID: o.ID, To: o.Status, ActorID: in.UserID, At: now}); err != nil {
				return fmt.Errorf("status history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("orders placed", "user_id", in.UserID, "count", len(orders), "payment_mode", in.PaymentMode, "merchant_order_id", res.MerchantOrderID)

	var pushes [][]outbound
	for _, o := range orders {
		if o.Status == models.OrderStatusPlaced {
			pushes = append(pushes, s.newOrderPush(ctx, o))
		}
	}
	s.deliver(ctx, pushes...)
	return res, nil
}

// priceGroup loads the restaurant and dishes of one group, checks that the
// restaurant is open and every dish belongs to it, and prices the group.
func (s *Service) priceGroup(ctx context.Context, g GroupInput, dest models.Address) (*models.Order, error) {
	r, err := s.store.GetRestaurant(ctx, g.RestaurantID)
	if err != nil {
		return nil, storeErr(err, ReasonRestaurantNotFound, "restaurant "+g.RestaurantID)
	}
	if r.Location == nil {
		return nil, newErr(KindValidation, ReasonRestaurantNoLocation, "restaurant %s has no location", r.ID)
	}
	open, err := IsOpenAt(r.OpeningHours, s.now().In(s.loc))
	if err != nil {
		return nil, &Error{Kind: KindValidation, Reason: ReasonMalformedHours, Msg: "restaurant " + r.ID + " has malformed opening hours", Err: err}
	}
	if !open {
		return nil, newErr(KindValidation, ReasonRestaurantClosed, "restaurant %s is closed", r.ID)
	}

	lines := make([]PriceLine, 0, len(g.Items))
	for _, it := range g.Items {
		d, err := s.store.GetDish(ctx, it.DishID)
		if err != nil {
			return nil, storeErr(err, ReasonDishNotFound, "dish "+it.DishID)
		}
		if d.RestaurantID != r.ID {
			return nil, newErr(KindValidation, ReasonInvalidDish, "dish %s does not belong to restaurant %s", d.ID, r.ID)
		}
		if !d.Available {
			return nil, newErr(KindValidation, ReasonDishUnavailable, "dish %s is unavailable", d.ID)
		}
		if d.Price <= 0 {
			return nil, newErr(KindValidation, ReasonInvalidPrice, "dish %s has no valid price", d.ID)
		}
		if strings.TrimSpace(d.Name) == "" {
			return nil, newErr(KindValidation, ReasonInvalidDish, "dish %s has no name", d.ID)
		}
		lines = append(lines, PriceLine{Dish: d, Qty: it.Qty})
	}

	o := &models.Order{RestaurantID: r.ID}
	s.pricing.Price(o, r, lines, dest)
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, ReasonOrderNotFound, "order "+orderID)
	}
	return o, nil
}

// AcceptOrder moves a PLACED order to ACCEPTED for the owning restaurant
// and offers it to eligible riders.
func (s *Service) AcceptOrder(ctx context.Context, restaurantID, orderID string) (*models.Order, error) {
	var updated *models.Order
	err := s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		o, err := repo.GetOrder(ctx, orderID)
		if err != nil {
			return storeErr(err, ReasonOrderNotFound, "order "+orderID)
		}
		if o.RestaurantID != restaurantID {
			return newErr(KindForbidden, ReasonNotOrderOwner, "order %s belongs to another restaurant", orderID)
		}
		updated, err = s.transition(ctx, repo, o, restaurantID, models.OrderStatusAccepted, store.OrderPatch{}, models.OrderStatusPlaced)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("order accepted", "order_id", orderID, "restaurant_id", restaurantID)

	if _, err := s.dispatch(ctx, updated); err != nil {
		s.logger.Warnw("dispatch failed", "order_id", orderID, "error", err)
	}
	s.deliver(ctx, s.customerStatusPush(ctx, updated))
	return updated, nil
}

// RejectOrder cancels a PLACED order on behalf of its restaurant, refunding online payments.
func (s *Service) RejectOrder(ctx context.Context, restaurantID, orderID string) (*models.Order, error) {
	updated, _, err := s.cancel(ctx, orderID, restaurantID, func(o *models.Order) error {
		if o.RestaurantID != restaurantID {
			return newErr(KindForbidden, ReasonNotOrderOwner, "order %s belongs to another restaurant", orderID)
		}
		return nil
	}, models.OrderStatusPlaced)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("order rejected", "order_id", orderID, "restaurant_id", restaurantID, "payment_state", updated.PaymentState)
	s.deliver(ctx, s.customerRejectedPush(ctx, updated))
	return updated, nil
}

// CancelOrder cancels a PLACED or ACCEPTED order on behalf of the customer.
// The restaurant is told only when it had already accepted the order.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	updated, prev, err := s.cancel(ctx, orderID, userID, func(o *models.Order) error {
		if o.UserID != userID {
			return newErr(KindForbidden, ReasonNotOrderOwner, "order %s belongs to another user", orderID)
		}
		return nil
	}, models.OrderStatusPlaced, models.OrderStatusAccepted)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("order cancelled", "order_id", orderID, "user_id", userID, "previous_status", prev, "payment_state", updated.PaymentState)
	if prev == models.OrderStatusAccepted {
		s.deliver(ctx, s.restaurantCancelledPush(ctx, updated))
	}
	return updated, nil
}

// cancel runs the guarded move to CANCELLED. For online orders the refund is
// requested inside the transaction, so a refund error leaves the order untouched.
func (s *Service) cancel(ctx context.Context, orderID, actorID string, authorize func(*models.Order) error, from ...models.OrderStatus) (*models.Order, models.OrderStatus, error) {
	// Reused if the store retries the transaction.
	merchantRefundID := s.newID()

	var (
		updated *models.Order
		prev    models.OrderStatus
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		o, err := repo.GetOrder(ctx, orderID)
		if err != nil {
			return storeErr(err, ReasonOrderNotFound, "order "+orderID)
		}
		if err := authorize(o); err != nil {
			return err
		}
		prev = o.Status
		now := s.now()
		updated, err = s.transition(ctx, repo, o, actorID, models.OrderStatusCancelled, store.OrderPatch{CancelledAt: &now}, from...)
		if err != nil {
			return err
		}
		if prev == models.OrderStatusAccepted {
			if err := repo.WithdrawOrderOffer(ctx, orderID, ""); err != nil {
				return fmt.Errorf("withdraw rider offers: %w", err)
			}
		}
		if o.PaymentMode != models.PaymentModeOnline {
			return nil
		}
		patch, err := s.initiateRefund(ctx, updated, merchantRefundID)
		if err != nil {
			return err
		}
		updated, err = repo.UpdateOrder(ctx, orderID, nil, patch)
		return storeErr(err, ReasonOrderNotFound, "order "+orderID)
	})
	if err != nil {
		return nil, "", err
	}
	return updated, prev, nil
}

// transition moves o to status to when its current status is one of from
// and records the change in the status history.
func (s *Service) transition(ctx context.Context, repo store.Repository, o *models.Order, actorID string, to models.OrderStatus, patch store.OrderPatch, from ...models.OrderStatus) (*models.Order, error) {
	if err := requireStatus(o, from...); err != nil {
		return nil, err
	}
	if !ValidStatusTransition(o.Status, to) {
		return nil, newErr(KindConflict, ReasonInvalidStatus, "order %s cannot move from %s to %s", o.ID, o.Status, to)
	}
	now := s.now()
	patch.Status = &to
	patch.UpdatedAt = now
	updated, err := repo.UpdateOrder(ctx, o.ID, from, patch)
	if err != nil {
		return nil, storeErr(err, ReasonOrderNotFound, "order "+o.ID)
	}
	change := models.StatusChange{OrderID: o.ID, From: o.Status, To: to, ActorID: actorID, At: now}
	if err := repo.AppendStatusHistory(ctx, change); err != nil {
		return nil, fmt.Errorf("status history: %w", err)
	}
	return updated, nil
}

func requireStatus(o *models.Order, allowed ...models.OrderStatus) error {
	if store.StatusIn(o.Status, allowed) {
		return nil
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return newErr(KindConflict, ReasonInvalidStatus, "order %s is %s, expected %s", o.ID, o.Status, strings.Join(names, " or "))
}
