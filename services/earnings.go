package services

import (
	"context"
	"errors"
	"math"

	"food-delivery/models"
	"food-delivery/store"
)

// RecordPayout books a payout of amount (major units) against an entity's
// remaining balance.
func (s *Service) RecordPayout(ctx context.Context, entityID string, amount float64) (*models.Earnings, error) {
	if entityID == "" {
		return nil, newErr(KindValidation, ReasonInvalidRequest, "entity id is required")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, newErr(KindValidation, ReasonInvalidAmount, "payout amount must be positive")
	}
	minor := toMinor(amount)
	if minor <= 0 {
		return nil, newErr(KindValidation, ReasonInvalidAmount, "payout amount must be at least one minor unit")
	}
	e, err := s.store.RecordPayout(ctx, entityID, minor, s.now())
	if errors.Is(err, store.ErrInsufficientBalance) {
		return nil, newErr(KindValidation, ReasonInsufficientBalance, "payout exceeds remaining balance of %s", entityID)
	}
	if err != nil {
		return nil, storeErr(err, ReasonEarningsNotFound, "earnings for "+entityID)
	}
	s.logger.Infow("payout recorded", "entity_id", entityID, "amount_minor", minor, "balance_minor", e.Balance())
	return e, nil
}

func (s *Service) GetEarnings(ctx context.Context, entityID string) (*models.Earnings, error) {
	e, err := s.store.GetEarnings(ctx, entityID)
	if err != nil {
		return nil, storeErr(err, ReasonEarningsNotFound, "earnings for "+entityID)
	}
	return e, nil
}
