package services

import (
	"context"
	"fmt"

	"food-delivery/models"
	"food-delivery/notify"

	"golang.org/x/sync/errgroup"
)

// Notification data "type" values.
const (
	NotifyTypeStatusUpdate   = "ORDER_STATUS_UPDATE"
	NotifyTypeNewOrder       = "NEW_ORDER"
	NotifyTypeRiderAssigned  = "RIDER_ASSIGNED"
	NotifyTypeOrderCancelled = "ORDER_CANCELLED"
	NotifyTypeDeliveryOffer  = "DELIVERY_AVAILABLE"
)

const (
	audienceUser       = "user"
	audienceRestaurant = "restaurant"
	audienceRider      = "rider"
)

const maxConcurrentPushes = 8

// outbound is one push to be sent to a single audience.
type outbound struct {
	audience string
	orderID  string
	msg      notify.Message
}

// CustomerMessageForOrderStatus returns the title and body pushed to the
// customer when their order reaches status. ok is false for statuses that
// are not announced. CANCELLED is not announced here: who cancelled decides
// the text, see customerRejectedPush.
func CustomerMessageForOrderStatus(status models.OrderStatus) (title, body string, ok bool) {
	switch status {
	case models.OrderStatusAccepted:
		return "Order Accepted", "Your order has been accepted by the restaurant.", true
	case models.OrderStatusAssigned:
		return "Rider Assigned", "A rider has been assigned to your order and is on the way.", true
	case models.OrderStatusPicked:
		return "Order Picked Up", "Your order has been picked up and is on its way to you.", true
	case models.OrderStatusDelivered:
		return "Order Delivered", "Your order has been delivered successfully!", true
	}
	return "", "", false
}

func orderData(o *models.Order, kind string) map[string]string {
	return map[string]string{
		"orderId": o.ID,
		"status":  string(o.Status),
		"type":    kind,
	}
}

func (s *Service) customerStatusPush(ctx context.Context, o *models.Order) []outbound {
	title, body, ok := CustomerMessageForOrderStatus(o.Status)
	if !ok {
		return nil
	}
	return s.customerPush(ctx, o, title, body)
}

// customerRejectedPush tells the customer the restaurant turned the order down.
func (s *Service) customerRejectedPush(ctx context.Context, o *models.Order) []outbound {
	return s.customerPush(ctx, o, "Order Rejected", "Your order has been rejected by the restaurant.")
}

func (s *Service) customerPush(ctx context.Context, o *models.Order, title, body string) []outbound {
	tokens := s.userTokens(ctx, o.UserID)
	if len(tokens) == 0 {
		return nil
	}
	return []outbound{{
		audience: audienceUser,
		orderID:  o.ID,
		msg: notify.Message{
			Tokens: tokens,
			Title:  title,
			Body:   body,
			Data:   orderData(o, NotifyTypeStatusUpdate),
			Hint:   notify.DefaultHint,
		},
	}}
}

func (s *Service) restaurantPush(ctx context.Context, o *models.Order, title, body, kind string, hint notify.Hint) []outbound {
	tokens := s.restaurantTokens(ctx, o.RestaurantID)
	if len(tokens) == 0 {
		return nil
	}
	return []outbound{{
		audience: audienceRestaurant,
		orderID:  o.ID,
		msg: notify.Message{
			Tokens: tokens,
			Title:  title,
			Body:   body,
			Data:   orderData(o, kind),
			Hint:   hint,
		},
	}}
}

func (s *Service) newOrderPush(ctx context.Context, o *models.Order) []outbound {
	return s.restaurantPush(ctx, o, "New Order Received", "You have received a new order.", NotifyTypeNewOrder, notify.NewOrderHint)
}

func (s *Service) restaurantRiderAssignedPush(ctx context.Context, o *models.Order) []outbound {
	return s.restaurantPush(ctx, o, "Rider Assigned", "A rider has been assigned to pick up the order.", NotifyTypeRiderAssigned, notify.DefaultHint)
}

func (s *Service) restaurantCancelledPush(ctx context.Context, o *models.Order) []outbound {
	return s.restaurantPush(ctx, o, "Order Cancelled",
		fmt.Sprintf("Order #%s has been cancelled by the user.", o.ID), NotifyTypeOrderCancelled, notify.DefaultHint)
}

func deliveryOfferPush(o *models.Order, riders []*models.Rider) []outbound {
	var tokens []string
	for _, r := range riders {
		if r.PushToken != "" {
			tokens = append(tokens, r.PushToken)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return []outbound{{
		audience: audienceRider,
		orderID:  o.ID,
		msg: notify.Message{
			Tokens: tokens,
			Title:  "New Delivery Available",
			Body:   fmt.Sprintf("Order #%s is ready for pickup near you.", o.ID),
			Data:   orderData(o, NotifyTypeDeliveryOffer),
			Hint:   notify.NewOrderHint,
		},
	}}
}

func (s *Service) userTokens(ctx context.Context, userID string) []string {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.logger.Debugw("no push target for user", "user_id", userID, "error", err)
		return nil
	}
	if u.PushToken == "" {
		return nil
	}
	return []string{u.PushToken}
}

func (s *Service) restaurantTokens(ctx context.Context, restaurantID string) []string {
	r, err := s.store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		s.logger.Debugw("no push target for restaurant", "restaurant_id", restaurantID, "error", err)
		return nil
	}
	if r.PushToken == "" {
		return nil
	}
	return []string{r.PushToken}
}

// deliver sends every push concurrently. Push failures are logged and
// recorded, never returned: the state change that triggered them is already
// committed.
func (s *Service) deliver(ctx context.Context, pushes ...[]outbound) {
	var all []outbound
	for _, p := range pushes {
		all = append(all, p...)
	}
	if len(all) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(maxConcurrentPushes)
	for _, ob := range all {
		ob := ob
		g.Go(func() error {
			res, err := s.sender.Send(ctx, ob.msg)
			if err != nil {
				s.logger.Warnw("push failed", "audience", ob.audience, "order_id", ob.orderID, "title", ob.msg.Title, "error", err)
				res.FailureCount = len(ob.msg.Tokens)
			}
			rec := &models.OutboundNotification{
				Audience: ob.audience,
				OrderID:  ob.orderID,
				Title:    ob.msg.Title,
				Body:     ob.msg.Body,
				Data:     ob.msg.Data,
				Success:  res.SuccessCount,
				Failure:  res.FailureCount,
				SentAt:   s.now(),
			}
			if err := s.store.SaveOutboundNotification(ctx, rec); err != nil {
				s.logger.Warnw("save outbound notification", "order_id", ob.orderID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
