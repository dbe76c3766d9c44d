package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
	"github.com/dkazakova/pawmatch/backend/internal/domain/model"
	pgrepo "github.com/dkazakova/pawmatch/backend/internal/repo/postgres"
	notifysvc "github.com/dkazakova/pawmatch/backend/internal/services/notify"
)

var ErrValidation = errors.New("validation error")

type ActivityStore interface {
	Touch(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) error
}

type Gate interface {
	Evaluate(ctx context.Context, intent model.NotificationIntent) (notifysvc.Decision, error)
}

type Service struct {
	pool     *pgxpool.Pool
	activity ActivityStore
	gate     Gate
	logger   *zap.Logger
	now      func() time.Time
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Activity ActivityStore
	Gate     Gate
	Logger   *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		pool:     deps.Pool,
		activity: deps.Activity,
		gate:     deps.Gate,
		logger:   logger,
		now:      time.Now,
	}
}

// BadgeEarned offers a badge_earned intent for the user. The badge code is
// carried in the payload so the delivery channel can render it.
func (s *Service) BadgeEarned(ctx context.Context, userID int64, badgeCode string) (notifysvc.Decision, error) {
	badgeCode = strings.TrimSpace(badgeCode)
	if userID <= 0 || badgeCode == "" {
		return notifysvc.Decision{}, ErrValidation
	}

	if err := s.touchActivity(ctx, userID); err != nil {
		return notifysvc.Decision{}, err
	}

	return s.offer(ctx, model.NotificationIntent{
		UserID:   userID,
		Category: enums.CategoryBadgeEarned,
		Payload:  map[string]any{"badge": badgeCode},
	})
}

// WalkReminderDue offers a walk_reminder intent for the user, tagged with the
// park the reminder is about.
func (s *Service) WalkReminderDue(ctx context.Context, userID int64, parkName string) (notifysvc.Decision, error) {
	parkName = strings.TrimSpace(parkName)
	if userID <= 0 || parkName == "" {
		return notifysvc.Decision{}, ErrValidation
	}

	return s.offer(ctx, model.NotificationIntent{
		UserID:   userID,
		Category: enums.CategoryWalkReminder,
		Payload:  map[string]any{"park": parkName},
	})
}

// InactivityDetected offers a re_engagement intent for the user. The daily
// and weekly caps in the gate keep repeated scans from nagging.
func (s *Service) InactivityDetected(ctx context.Context, userID int64, inactiveFor time.Duration) (notifysvc.Decision, error) {
	if userID <= 0 || inactiveFor <= 0 {
		return notifysvc.Decision{}, ErrValidation
	}

	return s.offer(ctx, model.NotificationIntent{
		UserID:   userID,
		Category: enums.CategoryReEngagement,
		Payload:  map[string]any{"inactive_days": int(inactiveFor.Hours() / 24)},
	})
}

func (s *Service) offer(ctx context.Context, intent model.NotificationIntent) (notifysvc.Decision, error) {
	if s.gate == nil {
		return notifysvc.Decision{}, fmt.Errorf("notification gate is not configured")
	}

	decision, err := s.gate.Evaluate(ctx, intent)
	if err != nil {
		return notifysvc.Decision{}, fmt.Errorf("evaluate %s intent: %w", intent.Category, err)
	}
	if !decision.Allowed {
		s.logger.Debug("event notification suppressed",
			zap.Int64("user_id", intent.UserID),
			zap.String("category", string(intent.Category)),
			zap.String("reason", string(decision.Reason)),
		)
	}

	return decision, nil
}

func (s *Service) touchActivity(ctx context.Context, userID int64) error {
	if s.pool == nil || s.activity == nil {
		return nil
	}

	now := s.now().UTC()
	return pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		return s.activity.Touch(txCtx, tx, userID, now)
	})
}
