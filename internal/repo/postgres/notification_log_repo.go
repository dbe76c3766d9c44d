package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
)

// NotificationLogRepo is the append-only audit trail of allowed sends. It is
// also the source of the sliding weekly window: a send counts against the
// weekly cap for exactly 7 days after its sent_at.
type NotificationLogRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationLogRepo(pool *pgxpool.Pool) *NotificationLogRepo {
	return &NotificationLogRepo{pool: pool}
}

func (r *NotificationLogRepo) Insert(ctx context.Context, tx pgx.Tx, userID int64, category enums.NotificationCategory, payload map[string]any, sentAt time.Time) (string, error) {
	if userID <= 0 || category == "" {
		return "", fmt.Errorf("invalid notification log payload")
	}
	if tx == nil {
		return "", fmt.Errorf("transaction is required")
	}
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode notification payload: %w", err)
	}

	id := uuid.NewString()
	if _, err := tx.Exec(ctx, `
INSERT INTO notification_log (
	id,
	user_id,
	category,
	payload,
	sent_at
) VALUES ($1, $2, $3, $4, $5)
`, id, userID, string(category), body, sentAt.UTC()); err != nil {
		return "", fmt.Errorf("insert notification log row: %w", err)
	}

	return id, nil
}

func (r *NotificationLogRepo) CountSince(ctx context.Context, tx pgx.Tx, userID int64, cutoff time.Time) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var count int
	if err := tx.QueryRow(ctx, `
SELECT COUNT(*)
FROM notification_log
WHERE user_id = $1 AND sent_at > $2
`, userID, cutoff.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications since cutoff: %w", err)
	}

	return count, nil
}

// OldestSince returns the oldest in-window send, used to report when the
// weekly cap frees up next.
func (r *NotificationLogRepo) OldestSince(ctx context.Context, tx pgx.Tx, userID int64, cutoff time.Time) (*time.Time, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}

	var sentAt time.Time
	err := tx.QueryRow(ctx, `
SELECT sent_at
FROM notification_log
WHERE user_id = $1 AND sent_at > $2
ORDER BY sent_at ASC
LIMIT 1
`, userID, cutoff.UTC()).Scan(&sentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get oldest in-window send: %w", err)
	}

	return &sentAt, nil
}

// CountSentSince is the pool-backed variant for the read-only status view.
func (r *NotificationLogRepo) CountSentSince(ctx context.Context, userID int64, cutoff time.Time) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return 0, nil
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM notification_log
WHERE user_id = $1 AND sent_at > $2
`, userID, cutoff.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sent notifications: %w", err)
	}

	return count, nil
}
