// Package notify is the single decision point for outbound notifications.
// Every feature that wants to reach a user (matching, badges, re-engagement,
// walk reminders) offers an intent to Evaluate; the gate either allows it and
// atomically charges the user's budget, or denies it with a reason and leaves
// all state untouched.
package notify

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
	"github.com/dkazakova/pawmatch/backend/internal/domain/rules"
	pgrepo "github.com/dkazakova/pawmatch/backend/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrUnknownCategory = errors.New("unknown notification category")
)

type BudgetStore interface {
	Lock(ctx context.Context, tx pgx.Tx, userID int64, dayKey string) (model.NotificationBudget, error)
	ConsumeDaily(ctx context.Context, tx pgx.Tx, userID int64, dayKey string, now time.Time) (int, error)
	LastSent(ctx context.Context, tx pgx.Tx, userID int64, category enums.NotificationCategory) (*time.Time, error)
	MarkSent(ctx context.Context, tx pgx.Tx, userID int64, category enums.NotificationCategory, now time.Time) error
	Get(ctx context.Context, userID int64, dayKey string) (model.NotificationBudget, error)
}

type SendLogStore interface {
	Insert(ctx context.Context, tx pgx.Tx, userID int64, category enums.NotificationCategory, payload map[string]any, sentAt time.Time) (string, error)
	CountSince(ctx context.Context, tx pgx.Tx, userID int64, cutoff time.Time) (int, error)
	OldestSince(ctx context.Context, tx pgx.Tx, userID int64, cutoff time.Time) (*time.Time, error)
	CountSentSince(ctx context.Context, userID int64, cutoff time.Time) (int, error)
}

// Deliverer hands an allowed notification to the delivery channel. Delivery
// failures are the channel's concern, not the gate's.
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, category enums.NotificationCategory, payload map[string]any)
}

type Metrics interface {
	RecordGateAllow(category string)
	RecordGateDeny(category, reason string)
}

type Config struct {
	DailyCap        int
	WeeklyCap       int
	QuietStartHour  int
	QuietEndHour    int
	DefaultCooldown time.Duration
	Cooldowns       map[enums.NotificationCategory]time.Duration
	DefaultTimezone string
}

// Decision is the gate's verdict. A deny is a result, never an error:
// RetryAfter carries the earliest instant the failed check could pass.
type Decision struct {
	Allowed        bool
	Reason         enums.DenyReason
	RetryAfter     *time.Time
	NotificationID string
}

type Service struct {
	pool      *pgxpool.Pool
	budgets   BudgetStore
	log       SendLogStore
	deliverer Deliverer
	metrics   Metrics
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

type Dependencies struct {
	Pool      *pgxpool.Pool
	Budgets   BudgetStore
	SendLog   SendLogStore
	Deliverer Deliverer
	Metrics   Metrics
	Logger    *zap.Logger
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DailyCap <= 0 {
		cfg.DailyCap = 3
	}
	if cfg.WeeklyCap <= 0 {
		cfg.WeeklyCap = 10
	}
	if cfg.QuietStartHour <= 0 {
		cfg.QuietStartHour = 8
	}
	if cfg.QuietEndHour <= 0 {
		cfg.QuietEndHour = 21
	}
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.DefaultTimezone) == "" {
		cfg.DefaultTimezone = "UTC"
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		pool:      deps.Pool,
		budgets:   deps.Budgets,
		log:       deps.SendLog,
		deliverer: deps.Deliverer,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Evaluate runs the policy checks in order (quiet hours, weekly cap, daily
// cap, category cooldown; first failure wins) and, on allow, charges the
// budget and records the send in the same transaction as the decision.
func (s *Service) Evaluate(ctx context.Context, intent model.NotificationIntent) (Decision, error) {
	if intent.UserID <= 0 {
		return Decision{}, ErrValidation
	}
	if _, ok := enums.ParseNotificationCategory(string(intent.Category)); !ok {
		return Decision{}, ErrUnknownCategory
	}

	now := s.now().UTC()
	loc := s.location()
	quiet := rules.QuietHours{StartHour: s.cfg.QuietStartHour, EndHour: s.cfg.QuietEndHour}

	// Quiet hours are a pure time check: deny before touching storage.
	if !quiet.Allows(now, loc) {
		retry := quiet.NextOpen(now, loc)
		return s.deny(intent, enums.DenyQuietHours, &retry), nil
	}

	if s.pool == nil || s.budgets == nil || s.log == nil {
		return Decision{}, fmt.Errorf("notification gate dependencies are not configured")
	}

	var decision Decision
	if err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		var err error
		decision, err = s.evaluateInTx(txCtx, tx, intent, now, loc)
		return err
	}); err != nil {
		return Decision{}, err
	}

	if decision.Allowed {
		if s.metrics != nil {
			s.metrics.RecordGateAllow(string(intent.Category))
		}
		if s.deliverer != nil {
			s.deliverer.Deliver(ctx, intent.UserID, intent.Category, intent.Payload)
		}
	}

	return decision, nil
}

// evaluateInTx runs the budget checks under the locked budget row. Deny
// paths never write: the only mutation short of the allow branch is the lazy
// creation of the (zero-count) budget row itself.
func (s *Service) evaluateInTx(ctx context.Context, tx pgx.Tx, intent model.NotificationIntent, now time.Time, loc *time.Location) (Decision, error) {
	dayKey := rules.DayKey(now, loc)
	cutoff := rules.WeeklyCutoff(now)

	// The budget row lock serializes concurrent intents for the user, so
	// every check below sees committed counts.
	budget, err := s.budgets.Lock(ctx, tx, intent.UserID, dayKey)
	if err != nil {
		return Decision{}, err
	}

	weekly, err := s.log.CountSince(ctx, tx, intent.UserID, cutoff)
	if err != nil {
		return Decision{}, err
	}
	if weekly >= s.cfg.WeeklyCap {
		oldest, err := s.log.OldestSince(ctx, tx, intent.UserID, cutoff)
		if err != nil {
			return Decision{}, err
		}
		var retry *time.Time
		if oldest != nil {
			at := oldest.Add(rules.WeeklyWindow)
			retry = &at
		}
		return s.deny(intent, enums.DenyWeeklyCap, retry), nil
	}

	daily := budget.DailyCount
	if budget.DayKey != dayKey {
		daily = 0
	}
	if daily >= s.cfg.DailyCap {
		retry := rules.NextResetAt(now, loc)
		return s.deny(intent, enums.DenyDailyCap, &retry), nil
	}

	lastSent, err := s.budgets.LastSent(ctx, tx, intent.UserID, intent.Category)
	if err != nil {
		return Decision{}, err
	}
	cooldown := s.cooldownFor(intent.Category)
	if lastSent != nil && now.Sub(*lastSent) < cooldown {
		retry := lastSent.Add(cooldown)
		return s.deny(intent, enums.DenyCategoryCooldown, &retry), nil
	}

	if _, err := s.budgets.ConsumeDaily(ctx, tx, intent.UserID, dayKey, now); err != nil {
		return Decision{}, err
	}
	if err := s.budgets.MarkSent(ctx, tx, intent.UserID, intent.Category, now); err != nil {
		return Decision{}, err
	}
	id, err := s.log.Insert(ctx, tx, intent.UserID, intent.Category, intent.Payload, now)
	if err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true, NotificationID: id}, nil
}

// BudgetStatus is the read-only remaining-budget view for UI display.
func (s *Service) BudgetStatus(ctx context.Context, userID int64) (model.BudgetStatus, error) {
	if userID <= 0 {
		return model.BudgetStatus{}, ErrValidation
	}
	if s.budgets == nil || s.log == nil {
		return model.BudgetStatus{}, fmt.Errorf("notification gate dependencies are not configured")
	}

	now := s.now().UTC()
	loc := s.location()
	dayKey := rules.DayKey(now, loc)

	budget, err := s.budgets.Get(ctx, userID, dayKey)
	if err != nil {
		return model.BudgetStatus{}, err
	}
	weekly, err := s.log.CountSentSince(ctx, userID, rules.WeeklyCutoff(now))
	if err != nil {
		return model.BudgetStatus{}, err
	}

	status := model.BudgetStatus{
		DailyRemaining:  max(s.cfg.DailyCap-budget.DailyCount, 0),
		WeeklyRemaining: max(s.cfg.WeeklyCap-weekly, 0),
	}

	quiet := rules.QuietHours{StartHour: s.cfg.QuietStartHour, EndHour: s.cfg.QuietEndHour}
	if !quiet.Allows(now, loc) {
		open := quiet.NextOpen(now, loc)
		status.NextQuietHoursEnd = &open
	}

	return status, nil
}

func (s *Service) deny(intent model.NotificationIntent, reason enums.DenyReason, retryAfter *time.Time) Decision {
	if s.metrics != nil {
		s.metrics.RecordGateDeny(string(intent.Category), string(reason))
	}
	s.logger.Debug("notification denied",
		zap.Int64("user_id", intent.UserID),
		zap.String("category", string(intent.Category)),
		zap.String("reason", string(reason)),
	)
	return Decision{Reason: reason, RetryAfter: retryAfter}
}

func (s *Service) cooldownFor(category enums.NotificationCategory) time.Duration {
	if d, ok := s.cfg.Cooldowns[category]; ok && d > 0 {
		return d
	}
	return s.cfg.DefaultCooldown
}

func (s *Service) location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(s.cfg.DefaultTimezone))
	if err != nil {
		return time.UTC
	}
	return loc
}
