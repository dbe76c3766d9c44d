package reengage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	notifysvc "github.com/dkazakova/pawmatch/backend/internal/services/notify"
)

const (
	defaultInactivityThreshold = 7 * 24 * time.Hour
	defaultBatchSize           = 200
)

type inactiveLister interface {
	ListInactiveSince(ctx context.Context, cutoff time.Time, limit int) ([]int64, error)
}

type inactivityNotifier interface {
	InactivityDetected(ctx context.Context, userID int64, inactiveFor time.Duration) (notifysvc.Decision, error)
}

// Job scans for users whose last activity is older than the threshold and
// offers each one a re-engagement notification. The gate's caps and cooldown
// keep repeated runs from nagging the same user.
type Job struct {
	activity  inactiveLister
	notifier  inactivityNotifier
	threshold time.Duration
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

func New(activity inactiveLister, notifier inactivityNotifier, threshold time.Duration, logger *zap.Logger) *Job {
	if threshold <= 0 {
		threshold = defaultInactivityThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		activity:  activity,
		notifier:  notifier,
		threshold: threshold,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.activity == nil || j.notifier == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.threshold)
	userIDs, err := j.activity.ListInactiveSince(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("list inactive users: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	var offered, suppressed int
	for _, userID := range userIDs {
		decision, err := j.notifier.InactivityDetected(ctx, userID, j.threshold)
		if err != nil {
			j.logger.Warn("re-engagement intent failed", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		if decision.Allowed {
			offered++
		} else {
			suppressed++
		}
	}

	j.logger.Info("re-engagement scan completed",
		zap.Int("candidates", len(userIDs)),
		zap.Int("offered", offered),
		zap.Int("suppressed", suppressed),
	)
	return nil
}
