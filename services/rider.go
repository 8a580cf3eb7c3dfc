package services

import (
	"context"
	"fmt"

	"food-delivery/models"
	"food-delivery/store"
)

// RiderAcceptOrder lets an available rider claim an ACCEPTED order that was
// offered to them. Only one rider can win; the offer is withdrawn from the rest.
func (s *Service) RiderAcceptOrder(ctx context.Context, riderID, orderID string) (*models.Order, error) {
	var updated *models.Order
	err := s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		o, err := repo.GetOrder(ctx, orderID)
		if err != nil {
			return storeErr(err, ReasonOrderNotFound, "order "+orderID)
		}
		if err := requireStatus(o, models.OrderStatusAccepted); err != nil {
			return err
		}
		rider, err := repo.GetRider(ctx, riderID)
		if err != nil {
			return storeErr(err, ReasonRiderNotFound, "rider "+riderID)
		}
		if !rider.IsAvailable {
			return newErr(KindConflict, ReasonRiderUnavailable, "rider %s is not available", riderID)
		}
		if !rider.HasOffer(orderID) {
			return newErr(KindForbidden, ReasonOrderNotOffered, "order %s was not offered to rider %s", orderID, riderID)
		}
		updated, err = s.transition(ctx, repo, o, riderID, models.OrderStatusAssigned,
			store.OrderPatch{AssignedRiderID: &riderID}, models.OrderStatusAccepted)
		if err != nil {
			return err
		}
		if err := repo.ClaimOrder(ctx, riderID, orderID); err != nil {
			return storeErr(err, ReasonRiderNotFound, "rider "+riderID)
		}
		if err := repo.WithdrawOrderOffer(ctx, orderID, riderID); err != nil {
			return fmt.Errorf("withdraw offer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("order assigned", "order_id", orderID, "rider_id", riderID)
	s.deliver(ctx, s.customerStatusPush(ctx, updated), s.restaurantRiderAssignedPush(ctx, updated))
	return updated, nil
}

// MarkPickedUp moves an ASSIGNED order to PICKED for its assigned rider.
func (s *Service) MarkPickedUp(ctx context.Context, riderID, orderID string) (*models.Order, error) {
	var updated *models.Order
	err := s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		o, err := s.assignedOrder(ctx, repo, riderID, orderID)
		if err != nil {
			return err
		}
		now := s.now()
		updated, err = s.transition(ctx, repo, o, riderID, models.OrderStatusPicked,
			store.OrderPatch{PickedUpAt: &now}, models.OrderStatusAssigned)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("order picked up", "order_id", orderID, "rider_id", riderID)
	s.deliver(ctx, s.customerStatusPush(ctx, updated))
	return updated, nil
}

// MarkDelivered completes a PICKED order, credits the restaurant with the
// item total and the rider with the delivery fee, and frees the rider's slot.
func (s *Service) MarkDelivered(ctx context.Context, riderID, orderID string) (*models.Order, error) {
	var updated *models.Order
	err := s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		o, err := s.assignedOrder(ctx, repo, riderID, orderID)
		if err != nil {
			return err
		}
		now := s.now()
		updated, err = s.transition(ctx, repo, o, riderID, models.OrderStatusDelivered,
			store.OrderPatch{DeliveredAt: &now}, models.OrderStatusPicked)
		if err != nil {
			return err
		}
		if err := repo.CreditEarnings(ctx, o.RestaurantID, models.EntityRestaurant, toMinor(o.ItemTotal)); err != nil {
			return fmt.Errorf("credit restaurant: %w", err)
		}
		if err := repo.CreditEarnings(ctx, riderID, models.EntityRider, toMinor(o.DeliveryFee)); err != nil {
			return fmt.Errorf("credit rider: %w", err)
		}
		if err := repo.ReleaseOrder(ctx, riderID, orderID); err != nil {
			return storeErr(err, ReasonRiderNotFound, "rider "+riderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("order delivered", "order_id", orderID, "rider_id", riderID,
		"restaurant_credit", toMinor(updated.ItemTotal), "rider_credit", toMinor(updated.DeliveryFee))
	s.deliver(ctx, s.customerStatusPush(ctx, updated))
	return updated, nil
}

func (s *Service) assignedOrder(ctx context.Context, repo store.Repository, riderID, orderID string) (*models.Order, error) {
	o, err := repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, ReasonOrderNotFound, "order "+orderID)
	}
	if o.AssignedRiderID != riderID {
		return nil, newErr(KindForbidden, ReasonNotAssignedRider, "order %s is not assigned to rider %s", orderID, riderID)
	}
	return o, nil
}
