package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
	"github.com/dkazakova/pawmatch/backend/internal/domain/model"
)

var ErrSwipeNotFound = errors.New("swipe not found")

// SwipeRepo owns the append-only swipe ledger. One row per ordered
// (from_user_id, to_user_id) pair; PENDING and PASSED rows are only ever
// touched again by the pair promotion, MATCHED is terminal.
type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

// AcquirePairLock serializes all writers for the unordered {a, b} pair within
// the current transaction. Without it two concurrent likes could each miss the
// other's uncommitted row and both resolve to "no match".
func (r *SwipeRepo) AcquirePairLock(ctx context.Context, tx pgx.Tx, a, b int64) error {
	if a <= 0 || b <= 0 {
		return fmt.Errorf("invalid pair lock payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if a > b {
		a, b = b, a
	}
	key := strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)

	if _, err := tx.Exec(ctx, `
SELECT pg_advisory_xact_lock(hashtextextended($1, 0))
`, key); err != nil {
		return fmt.Errorf("acquire pair lock: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts the ordered-pair row, or returns the already stored
// row unchanged. The second return value reports whether a row was written.
func (r *SwipeRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64, status enums.SwipeStatus, now time.Time) (model.Swipe, bool, error) {
	if fromUserID <= 0 || toUserID <= 0 || status == "" {
		return model.Swipe{}, false, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return model.Swipe{}, false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec model.Swipe
	err := tx.QueryRow(ctx, `
INSERT INTO swipes (
	from_user_id,
	to_user_id,
	status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (from_user_id, to_user_id) DO NOTHING
RETURNING from_user_id, to_user_id, status, created_at, updated_at
`, fromUserID, toUserID, string(status), now.UTC()).Scan(
		&rec.FromUserID,
		&rec.ToUserID,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Swipe{}, false, fmt.Errorf("create swipe: %w", err)
	}

	existing, err := r.Get(ctx, tx, fromUserID, toUserID)
	if err != nil {
		return model.Swipe{}, false, err
	}
	return existing, false, nil
}

func (r *SwipeRepo) Get(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (model.Swipe, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return model.Swipe{}, fmt.Errorf("invalid swipe lookup payload")
	}
	if tx == nil {
		return model.Swipe{}, fmt.Errorf("transaction is required")
	}

	var rec model.Swipe
	err := tx.QueryRow(ctx, `
SELECT from_user_id, to_user_id, status, created_at, updated_at
FROM swipes
WHERE from_user_id = $1 AND to_user_id = $2
`, fromUserID, toUserID).Scan(
		&rec.FromUserID,
		&rec.ToUserID,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Swipe{}, ErrSwipeNotFound
		}
		return model.Swipe{}, fmt.Errorf("get swipe: %w", err)
	}

	return rec, nil
}

// PromotePairIfPending sets both directions of the pair to MATCHED in one
// conditional statement. It returns the number of rows promoted: 2 means this
// caller won the promotion, anything else means the pair was not (or no
// longer) promotable and nothing was changed that should trigger
// notifications.
func (r *SwipeRepo) PromotePairIfPending(ctx context.Context, tx pgx.Tx, userA, userB int64, now time.Time) (int64, error) {
	if userA <= 0 || userB <= 0 || userA == userB {
		return 0, fmt.Errorf("invalid promotion payload")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := tx.Exec(ctx, `
UPDATE swipes
SET status = $4, updated_at = $3
WHERE ((from_user_id = $1 AND to_user_id = $2) OR (from_user_id = $2 AND to_user_id = $1))
	AND status = $5
`, userA, userB, now.UTC(), string(enums.SwipeStatusMatched), string(enums.SwipeStatusPending))
	if err != nil {
		return 0, fmt.Errorf("promote swipe pair: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListMatchesFor returns the user's matches, newest first. Each MATCHED pair
// has two ledger rows; reading the user's outgoing direction yields exactly
// one row per match.
func (r *SwipeRepo) ListMatchesFor(ctx context.Context, userID int64, limit int) ([]model.Match, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid matches lookup payload")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT from_user_id, to_user_id, updated_at
FROM swipes
WHERE from_user_id = $1 AND status = $2
ORDER BY updated_at DESC
LIMIT $3
`, userID, string(enums.SwipeStatusMatched), limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var from, to int64
		var matchedAt time.Time
		if err := rows.Scan(&from, &to, &matchedAt); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		a, b := from, to
		if a > b {
			a, b = b, a
		}
		matches = append(matches, model.Match{
			UserAID:   a,
			UserBID:   b,
			CreatedAt: matchedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match rows: %w", err)
	}

	return matches, nil
}
