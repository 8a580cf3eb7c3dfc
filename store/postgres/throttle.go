package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoginThrottle keeps per-username failure counters in the login_throttle table.
// Each failure sets cooldown_until = now() + min(30, 2^fail_count) seconds.
type LoginThrottle struct {
	pool *pgxpool.Pool
}

func NewLoginThrottle(pool *pgxpool.Pool) *LoginThrottle {
	return &LoginThrottle{pool: pool}
}

// WaitSeconds returns how many seconds the user must wait before trying again (0 if no cooldown).
func (t *LoginThrottle) WaitSeconds(ctx context.Context, username string) (int, error) {
	var cooldownUntil *time.Time
	err := t.pool.QueryRow(ctx, `SELECT cooldown_until FROM login_throttle WHERE username = $1`, username).
		Scan(&cooldownUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	if cooldownUntil == nil || !time.Now().Before(*cooldownUntil) {
		return 0, nil
	}
	return int(time.Until(*cooldownUntil).Seconds()) + 1, nil
}

func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO login_throttle (username, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 1, now(), now() + interval '2 seconds', now())
		ON CONFLICT (username) DO UPDATE SET
			fail_count = login_throttle.fail_count + 1,
			last_failed_at = now(),
			cooldown_until = now() + (LEAST(30, POWER(2, LEAST(login_throttle.fail_count + 1, 10))::int) || ' seconds')::interval,
			updated_at = now()`,
		username,
	)
	return err
}

func (t *LoginThrottle) RecordSuccess(ctx context.Context, username string) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO login_throttle (username, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 0, NULL, NULL, now())
		ON CONFLICT (username) DO UPDATE SET
			fail_count = 0,
			last_failed_at = NULL,
			cooldown_until = NULL,
			updated_at = now()`,
		username,
	)
	return err
}
