package services

import (
	"context"
	"fmt"

	"food-delivery/models"
)

// EligibleRiders returns available riders whose service zones cover both the
// pickup and the drop-off PIN codes. The store narrows by the pickup code and
// the drop-off code is checked here.
func (s *Service) EligibleRiders(ctx context.Context, sourcePin, destPin string) ([]*models.Rider, error) {
	if sourcePin == "" || destPin == "" {
		return nil, newErr(KindValidation, ReasonInvalidRequest, "both pickup and drop-off pin codes are required")
	}
	candidates, err := s.store.ListAvailableRidersByPinCode(ctx, sourcePin)
	if err != nil {
		return nil, fmt.Errorf("list riders for %s: %w", sourcePin, err)
	}
	out := candidates[:0]
	for _, r := range candidates {
		if r.Services(destPin) {
			out = append(out, r)
		}
	}
	return out, nil
}

// dispatch offers an accepted order to every eligible rider and pushes them
// a delivery offer. Finding nobody is not an error.
func (s *Service) dispatch(ctx context.Context, o *models.Order) ([]*models.Rider, error) {
	r, err := s.store.GetRestaurant(ctx, o.RestaurantID)
	if err != nil {
		return nil, storeErr(err, ReasonRestaurantNotFound, "restaurant "+o.RestaurantID)
	}
	riders, err := s.EligibleRiders(ctx, r.PinCode, o.Address.PinCode)
	if err != nil {
		return nil, err
	}
	if len(riders) == 0 {
		s.logger.Infow("no eligible riders", "order_id", o.ID, "source_pin", r.PinCode, "dest_pin", o.Address.PinCode)
		return nil, nil
	}
	ids := make([]string, len(riders))
	for i, rd := range riders {
		ids[i] = rd.ID
	}
	if err := s.store.OfferOrderToRiders(ctx, o.ID, ids); err != nil {
		return nil, fmt.Errorf("offer order %s: %w", o.ID, err)
	}
	s.logger.Infow("order offered", "order_id", o.ID, "riders", len(ids))
	s.deliver(ctx, deliveryOfferPush(o, riders))
	return riders, nil
}

// RedispatchOrder repeats the rider offer for an order still waiting for a rider.
func (s *Service) RedispatchOrder(ctx context.Context, orderID string) ([]*models.Rider, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(o, models.OrderStatusAccepted); err != nil {
		return nil, err
	}
	return s.dispatch(ctx, o)
}
