package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"food-delivery/models"
	"food-delivery/store"

	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, merchant_order_id, user_id, restaurant_id, items, item_total, delivery_fee, gst,
	platform_fee, total, address, payment_mode, payment_state, status, assigned_rider_id, transaction_id,
	refund_id, merchant_refund_id, expire_at, created_at, updated_at, cancelled_at, picked_up_at, delivered_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var items, address []byte
	err := row.Scan(&o.ID, &o.MerchantOrderID, &o.UserID, &o.RestaurantID, &items, &o.ItemTotal,
		&o.DeliveryFee, &o.GST, &o.PlatformFee, &o.Total, &address, &o.PaymentMode, &o.PaymentState,
		&o.Status, &o.AssignedRiderID, &o.TransactionID, &o.RefundID, &o.MerchantRefundID, &o.ExpireAt,
		&o.CreatedAt, &o.UpdatedAt, &o.CancelledAt, &o.PickedUpAt, &o.DeliveredAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return nil, fmt.Errorf("decode address of order %s: %w", o.ID, err)
	}
	return &o, nil
}

func (r *repo) CreateOrders(ctx context.Context, orders []*models.Order) error {
	for _, o := range orders {
		items, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("marshal items: %w", err)
		}
		address, err := json.Marshal(o.Address)
		if err != nil {
			return fmt.Errorf("marshal address: %w", err)
		}
		_, err = r.q.Exec(ctx, `
			INSERT INTO orders (
				id, merchant_order_id, user_id, restaurant_id, items, item_total, delivery_fee, gst,
				platform_fee, total, address, payment_mode, payment_state, status, transaction_id,
				expire_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11::jsonb, $12, $13, $14, $15, $16, $17, $18)`,
			o.ID, o.MerchantOrderID, o.UserID, o.RestaurantID, string(items), o.ItemTotal, o.DeliveryFee, o.GST,
			o.PlatformFee, o.Total, string(address), o.PaymentMode, o.PaymentState, o.Status, o.TransactionID,
			o.ExpireAt, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("order %s: %w", o.ID, store.ErrConflict)
			}
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
	}
	return nil
}

func (r *repo) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (r *repo) ListOrdersByMerchantOrderID(ctx context.Context, merchantOrderID string) ([]*models.Order, error) {
	rows, err := r.q.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE merchant_order_id = $1 ORDER BY id`, merchantOrderID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repo) UpdateOrder(ctx context.Context, id string, from []models.OrderStatus, patch store.OrderPatch) (*models.Order, error) {
	args := []any{id}
	var sets []string
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.PaymentState != nil {
		set("payment_state", *patch.PaymentState)
	}
	if patch.AssignedRiderID != nil {
		set("assigned_rider_id", *patch.AssignedRiderID)
	}
	if patch.RefundID != nil {
		set("refund_id", *patch.RefundID)
	}
	if patch.MerchantRefundID != nil {
		set("merchant_refund_id", *patch.MerchantRefundID)
	}
	if patch.CancelledAt != nil {
		set("cancelled_at", *patch.CancelledAt)
	}
	if patch.PickedUpAt != nil {
		set("picked_up_at", *patch.PickedUpAt)
	}
	if patch.DeliveredAt != nil {
		set("delivered_at", *patch.DeliveredAt)
	}
	if !patch.UpdatedAt.IsZero() {
		set("updated_at", patch.UpdatedAt)
	} else {
		sets = append(sets, "updated_at = now()")
	}

	where := "id = $1"
	if len(from) > 0 {
		statuses := make([]string, len(from))
		for i, s := range from {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}

	o, err := scanOrder(r.q.QueryRow(ctx,
		`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE `+where+` RETURNING `+orderColumns, args...))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConflict
}

func (r *repo) AppendStatusHistory(ctx context.Context, c models.StatusChange) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.OrderID, c.From, c.To, c.ActorID, c.At,
	)
	return err
}
