package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) Touch(ctx context.Context, tx pgx.Tx, userID int64, at time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO user_activity (
	user_id,
	last_active_at
) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET
	last_active_at = GREATEST(user_activity.last_active_at, EXCLUDED.last_active_at)
`, userID, at.UTC()); err != nil {
		return fmt.Errorf("touch user activity: %w", err)
	}

	return nil
}

// ListInactiveSince returns users whose last activity predates the cutoff,
// oldest first.
func (r *ActivityRepo) ListInactiveSince(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id
FROM user_activity
WHERE last_active_at < $1
ORDER BY last_active_at ASC
LIMIT $2
`, cutoff.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list inactive users: %w", err)
	}
	defer rows.Close()

	users := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan inactive user: %w", err)
		}
		users = append(users, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate inactive users: %w", rows.Err())
	}

	return users, nil
}
