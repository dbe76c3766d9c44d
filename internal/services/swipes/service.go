// Package swipes owns the swipe ledger and the mutual-match resolver. A like
// is recorded and resolved against its reciprocal inside one transaction;
// the pair promotion is a single conditional two-row update, so a match is
// recognized exactly once and both directions flip together.
package swipes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
	"github.com/dkazakova/pawmatch/backend/internal/domain/model"
	pgrepo "github.com/dkazakova/pawmatch/backend/internal/repo/postgres"
	notifysvc "github.com/dkazakova/pawmatch/backend/internal/services/notify"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrUnsupportedDecision = errors.New("unsupported swipe decision")
)

// TooFastError reports a burst-limiter block, carrying the wait in seconds.
type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return fmt.Sprintf("too many swipe actions, retry after %ds", e.RetryAfterSec)
}

func IsTooFast(err error) (TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return tf, true
	}
	return TooFastError{}, false
}

type SwipeStore interface {
	AcquirePairLock(ctx context.Context, tx pgx.Tx, a, b int64) error
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64, status enums.SwipeStatus, now time.Time) (model.Swipe, bool, error)
	Get(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (model.Swipe, error)
	PromotePairIfPending(ctx context.Context, tx pgx.Tx, userA, userB int64, now time.Time) (int64, error)
}

type ActivityStore interface {
	Touch(ctx context.Context, tx pgx.Tx, userID int64, at time.Time) error
}

type MatchLister interface {
	ListMatchesFor(ctx context.Context, userID int64, limit int) ([]model.Match, error)
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, userID int64) (int64, bool, error)
}

// Gate judges the match notification intents emitted by the resolver.
type Gate interface {
	Evaluate(ctx context.Context, intent model.NotificationIntent) (notifysvc.Decision, error)
}

type Metrics interface {
	RecordSwipe(decision string)
	RecordMatch()
}

type Result struct {
	Record       model.Swipe
	MatchCreated bool
}

type Service struct {
	pool        *pgxpool.Pool
	swipeStore  SwipeStore
	matches     MatchLister
	activity    ActivityStore
	rateLimiter RateLimiter
	gate        Gate
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	SwipeStore  SwipeStore
	Matches     MatchLister
	Activity    ActivityStore
	RateLimiter RateLimiter
	Gate        Gate
	Metrics     Metrics
	Logger      *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		pool:        deps.Pool,
		swipeStore:  deps.SwipeStore,
		matches:     deps.Matches,
		activity:    deps.Activity,
		rateLimiter: deps.RateLimiter,
		gate:        deps.Gate,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Swipe records a like/pass for the ordered (from, to) pair. The call is
// idempotent: a repeated swipe returns the stored record unchanged and never
// re-triggers resolution. A like resolves synchronously against the
// reciprocal row; when it completes a mutual pair, exactly two match intents
// are offered to the gate after the transaction commits.
func (s *Service) Swipe(ctx context.Context, fromUserID, toUserID int64, decision string) (Result, error) {
	if fromUserID <= 0 || toUserID <= 0 || fromUserID == toUserID {
		return Result{}, ErrValidation
	}
	parsed, ok := enums.ParseSwipeDecision(decision)
	if !ok {
		return Result{}, ErrUnsupportedDecision
	}
	if parsed == enums.SwipeDecisionLike && s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowSwipe(ctx, fromUserID)
		if err != nil {
			return Result{}, fmt.Errorf("apply swipe rate limiter: %w", err)
		}
		if !allowed {
			return Result{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	if s.pool == nil || s.swipeStore == nil {
		return Result{}, fmt.Errorf("swipe dependencies are not configured")
	}

	now := s.now().UTC()

	var (
		result      Result
		emitIntents bool
	)
	if err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		result, emitIntents, err = s.recordInTx(txCtx, tx, fromUserID, toUserID, parsed, now)
		return err
	}); err != nil {
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSwipe(string(parsed))
		if emitIntents {
			s.metrics.RecordMatch()
		}
	}

	if emitIntents {
		s.offerMatchIntents(ctx, fromUserID, toUserID)
	}

	return result, nil
}

// Matches lists the caller's matches, newest first.
func (s *Service) Matches(ctx context.Context, userID int64, limit int) ([]model.Match, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.matches == nil {
		return nil, fmt.Errorf("match listing is not configured")
	}

	return s.matches.ListMatchesFor(ctx, userID, limit)
}

func (s *Service) recordInTx(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64, decision enums.SwipeDecision, now time.Time) (Result, bool, error) {
	// Serialize writers for the unordered pair before reading the reciprocal,
	// so two simultaneous likes cannot both miss each other's row.
	if err := s.swipeStore.AcquirePairLock(ctx, tx, fromUserID, toUserID); err != nil {
		return Result{}, false, err
	}

	status := enums.SwipeStatusPending
	if decision == enums.SwipeDecisionPass {
		status = enums.SwipeStatusPassed
	}

	rec, inserted, err := s.swipeStore.CreateIfAbsent(ctx, tx, fromUserID, toUserID, status, now)
	if err != nil {
		return Result{}, false, err
	}
	if !inserted {
		// Settled pair: the stored record wins, whatever the replay said.
		return Result{Record: rec}, false, nil
	}

	if s.activity != nil {
		if err := s.activity.Touch(ctx, tx, fromUserID, now); err != nil {
			return Result{}, false, err
		}
	}

	if decision == enums.SwipeDecisionPass {
		return Result{Record: rec}, false, nil
	}

	matched, promoted, err := s.tryResolve(ctx, tx, fromUserID, toUserID, now)
	if err != nil {
		return Result{}, false, err
	}
	if matched {
		rec.Status = enums.SwipeStatusMatched
		rec.UpdatedAt = now
	}

	return Result{Record: rec, MatchCreated: matched}, promoted, nil
}

// tryResolve reports whether the pair is mutual and whether this caller
// performed the promotion. Observing an already-matched pair is the normal
// losing-race outcome, not an error.
func (s *Service) tryResolve(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64, now time.Time) (matched, promoted bool, err error) {
	reciprocal, err := s.swipeStore.Get(ctx, tx, toUserID, fromUserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSwipeNotFound) {
			return false, false, nil
		}
		return false, false, err
	}

	switch reciprocal.Status {
	case enums.SwipeStatusPassed:
		return false, false, nil
	case enums.SwipeStatusMatched:
		return true, false, nil
	}

	rows, err := s.swipeStore.PromotePairIfPending(ctx, tx, fromUserID, toUserID, now)
	if err != nil {
		return false, false, err
	}
	// Both directions flip in one statement; fewer rows means another writer
	// already promoted the pair.
	return true, rows == 2, nil
}

func (s *Service) offerMatchIntents(ctx context.Context, fromUserID, toUserID int64) {
	if s.gate == nil {
		return
	}

	pairs := []struct {
		userID int64
		peerID int64
	}{
		{fromUserID, toUserID},
		{toUserID, fromUserID},
	}
	for _, p := range pairs {
		decision, err := s.gate.Evaluate(ctx, model.NotificationIntent{
			UserID:   p.userID,
			Category: enums.CategoryMatch,
			Payload:  map[string]any{"peer_id": p.peerID},
		})
		if err != nil {
			s.logger.Warn("match notification evaluation failed",
				zap.Int64("user_id", p.userID),
				zap.Error(err),
			)
			continue
		}
		if !decision.Allowed {
			s.logger.Debug("match notification suppressed",
				zap.Int64("user_id", p.userID),
				zap.String("reason", string(decision.Reason)),
			)
		}
	}
}
