package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-delivery/models"
	"food-delivery/store"

	"github.com/jackc/pgx/v5"
)

func (r *repo) CreditEarnings(ctx context.Context, entityID string, kind models.EntityKind, amount int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO earnings (entity_id, entity_kind, earnings, payout)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (entity_id) DO UPDATE SET earnings = earnings.earnings + EXCLUDED.earnings`,
		entityID, kind, amount,
	)
	if err != nil {
		return fmt.Errorf("credit earnings %s: %w", entityID, err)
	}
	return nil
}

func (r *repo) RecordPayout(ctx context.Context, entityID string, amount int64, at time.Time) (*models.Earnings, error) {
	var e models.Earnings
	err := r.q.QueryRow(ctx, `
		UPDATE earnings SET payout = payout + $2, last_payout = $3
		WHERE entity_id = $1 AND earnings - payout >= $2
		RETURNING entity_id, entity_kind, earnings, payout, last_payout`,
		entityID, amount, at,
	).Scan(&e.EntityID, &e.EntityKind, &e.Earnings, &e.Payout, &e.LastPayout)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("record payout %s: %w", entityID, err)
	}
	if _, err := r.GetEarnings(ctx, entityID); err != nil {
		return nil, err
	}
	return nil, store.ErrInsufficientBalance
}

func (r *repo) GetEarnings(ctx context.Context, entityID string) (*models.Earnings, error) {
	var e models.Earnings
	err := r.q.QueryRow(ctx, `
		SELECT entity_id, entity_kind, earnings, payout, last_payout FROM earnings WHERE entity_id = $1`,
		entityID,
	).Scan(&e.EntityID, &e.EntityKind, &e.Earnings, &e.Payout, &e.LastPayout)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}
