package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"food-delivery/models"
	"food-delivery/store"
)

func (r *repo) GetAdmin(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	err := r.q.QueryRow(ctx, `SELECT username, password_hash, created_at FROM admins WHERE username = $1`, username).
		Scan(&a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *repo) CreateAdmin(ctx context.Context, a *models.Admin) error {
	_, err := r.q.Exec(ctx, `INSERT INTO admins (username, password_hash, created_at) VALUES ($1, $2, $3)`,
		a.Username, a.PasswordHash, a.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

// SaveOutboundNotification persists one push attempt with its delivery tally.
func (r *repo) SaveOutboundNotification(ctx context.Context, n *models.OutboundNotification) error {
	data := "{}"
	if len(n.Data) > 0 {
		b, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("marshal data: %w", err)
		}
		data = string(b)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO outbound_notifications (audience, order_id, title, body, data, success, failure, sent_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`,
		n.Audience, n.OrderID, n.Title, n.Body, data, n.Success, n.Failure, n.SentAt,
	)
	return err
}
