package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
	"github.com/dkazakova/pawmatch/backend/internal/domain/model"
)

// BudgetRepo owns the per-user notification budget row and the per-category
// last-sent marks. The budget row is the serialization point for concurrent
// intents: Lock upserts it lazily and holds it FOR UPDATE until commit, so
// every cap check runs against committed counts.
type BudgetRepo struct {
	pool *pgxpool.Pool
}

func NewBudgetRepo(pool *pgxpool.Pool) *BudgetRepo {
	return &BudgetRepo{pool: pool}
}

func (r *BudgetRepo) Lock(ctx context.Context, tx pgx.Tx, userID int64, dayKey string) (model.NotificationBudget, error) {
	if userID <= 0 || strings.TrimSpace(dayKey) == "" {
		return model.NotificationBudget{}, fmt.Errorf("invalid budget lock payload")
	}
	if tx == nil {
		return model.NotificationBudget{}, fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO notification_budgets (
	user_id,
	day_key,
	daily_count,
	updated_at
) VALUES ($1, $2::date, 0, NOW())
ON CONFLICT (user_id) DO NOTHING
`, userID, dayKey); err != nil {
		return model.NotificationBudget{}, fmt.Errorf("init budget row: %w", err)
	}

	var rec model.NotificationBudget
	err := tx.QueryRow(ctx, `
SELECT user_id, to_char(day_key, 'YYYY-MM-DD'), daily_count, updated_at
FROM notification_budgets
WHERE user_id = $1
FOR UPDATE
`, userID).Scan(
		&rec.UserID,
		&rec.DayKey,
		&rec.DailyCount,
		&rec.UpdatedAt,
	)
	if err != nil {
		return model.NotificationBudget{}, fmt.Errorf("lock budget row: %w", err)
	}

	return rec, nil
}

// ConsumeDaily increments the daily counter, rolling it over to 1 when the
// stored day key is older than the current one. Callers must hold the row via
// Lock in the same transaction.
func (r *BudgetRepo) ConsumeDaily(ctx context.Context, tx pgx.Tx, userID int64, dayKey string, now time.Time) (int, error) {
	if userID <= 0 || strings.TrimSpace(dayKey) == "" {
		return 0, fmt.Errorf("invalid budget consume payload")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var count int
	err := tx.QueryRow(ctx, `
UPDATE notification_budgets
SET
	daily_count = CASE WHEN day_key = $2::date THEN daily_count + 1 ELSE 1 END,
	day_key = $2::date,
	updated_at = $3
WHERE user_id = $1
RETURNING daily_count
`, userID, dayKey, now.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("consume daily budget: %w", err)
	}

	return count, nil
}

func (r *BudgetRepo) LastSent(ctx context.Context, tx pgx.Tx, userID int64, category enums.NotificationCategory) (*time.Time, error) {
	if userID <= 0 || category == "" {
		return nil, fmt.Errorf("invalid last-sent lookup payload")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}

	var sentAt time.Time
	err := tx.QueryRow(ctx, `
SELECT last_sent_at
FROM notification_marks
WHERE user_id = $1 AND category = $2
`, userID, string(category)).Scan(&sentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last sent mark: %w", err)
	}

	return &sentAt, nil
}

func (r *BudgetRepo) MarkSent(ctx context.Context, tx pgx.Tx, userID int64, category enums.NotificationCategory, now time.Time) error {
	if userID <= 0 || category == "" {
		return fmt.Errorf("invalid mark payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO notification_marks (
	user_id,
	category,
	last_sent_at
) VALUES ($1, $2, $3)
ON CONFLICT (user_id, category) DO UPDATE SET
	last_sent_at = EXCLUDED.last_sent_at
`, userID, string(category), now.UTC()); err != nil {
		return fmt.Errorf("upsert sent mark: %w", err)
	}

	return nil
}

// Get is the read-only view used by the budget status endpoint. A user
// without a budget row reports a zero count under the requested day key.
func (r *BudgetRepo) Get(ctx context.Context, userID int64, dayKey string) (model.NotificationBudget, error) {
	if userID <= 0 || strings.TrimSpace(dayKey) == "" {
		return model.NotificationBudget{}, fmt.Errorf("invalid budget lookup payload")
	}
	if r.pool == nil {
		return model.NotificationBudget{UserID: userID, DayKey: dayKey}, nil
	}

	var rec model.NotificationBudget
	err := r.pool.QueryRow(ctx, `
SELECT user_id, to_char(day_key, 'YYYY-MM-DD'), daily_count, updated_at
FROM notification_budgets
WHERE user_id = $1
`, userID).Scan(
		&rec.UserID,
		&rec.DayKey,
		&rec.DailyCount,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NotificationBudget{UserID: userID, DayKey: dayKey}, nil
		}
		return model.NotificationBudget{}, fmt.Errorf("get budget row: %w", err)
	}

	if rec.DayKey != dayKey {
		// Stale row from a previous day; the counter has logically reset.
		rec.DayKey = dayKey
		rec.DailyCount = 0
	}

	return rec, nil
}
