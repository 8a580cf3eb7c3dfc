package postgres

import (
	"context"
	"fmt"

	"food-delivery/models"
	"food-delivery/store"

	"github.com/jackc/pgx/v5"
)

const riderColumns = `id, name, is_available, service_pin_codes, push_token, available_orders, current_orders`

func scanRider(row pgx.Row) (*models.Rider, error) {
	var rd models.Rider
	err := row.Scan(&rd.ID, &rd.Name, &rd.IsAvailable, &rd.ServicePinCodes, &rd.PushToken, &rd.AvailableOrders, &rd.CurrentOrders)
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *repo) GetRider(ctx context.Context, id string) (*models.Rider, error) {
	rd, err := scanRider(r.q.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return rd, nil
}

func (r *repo) ListAvailableRidersByPinCode(ctx context.Context, pin string) ([]*models.Rider, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+riderColumns+` FROM riders
		WHERE is_available AND $1::text = ANY(service_pin_codes)
		ORDER BY id`, pin)
	if err != nil {
		return nil, fmt.Errorf("list riders: %w", err)
	}
	defer rows.Close()
	var out []*models.Rider
	for rows.Next() {
		rd, err := scanRider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *repo) OfferOrderToRiders(ctx context.Context, orderID string, riderIDs []string) error {
	if len(riderIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		UPDATE riders SET available_orders = array_append(available_orders, $1::text)
		WHERE id = ANY($2) AND NOT ($1::text = ANY(available_orders))`,
		orderID, riderIDs,
	)
	return err
}

func (r *repo) ClaimOrder(ctx context.Context, riderID, orderID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE riders SET
			available_orders = array_remove(available_orders, $2::text),
			current_orders = CASE WHEN $2::text = ANY(current_orders) THEN current_orders
				ELSE array_append(current_orders, $2::text) END
		WHERE id = $1`,
		riderID, orderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repo) WithdrawOrderOffer(ctx context.Context, orderID, exceptRiderID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE riders SET available_orders = array_remove(available_orders, $1::text)
		WHERE $1::text = ANY(available_orders) AND id <> $2`,
		orderID, exceptRiderID,
	)
	return err
}

func (r *repo) ReleaseOrder(ctx context.Context, riderID, orderID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE riders SET current_orders = array_remove(current_orders, $2::text) WHERE id = $1`,
		riderID, orderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
