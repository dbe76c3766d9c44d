package model

import (
	"time"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
)

// NotificationIntent is a candidate send. It is never persisted; only its
// accepted effect is recorded in the budget row and the audit log.
type NotificationIntent struct {
	UserID   int64                      `json:"user_id"`
	Category enums.NotificationCategory `json:"category"`
	Payload  map[string]any             `json:"payload,omitempty"`
}

type NotificationBudget struct {
	UserID     int64     `json:"user_id"`
	DayKey     string    `json:"day_key"`
	DailyCount int       `json:"daily_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type BudgetStatus struct {
	DailyRemaining    int        `json:"daily_remaining"`
	WeeklyRemaining   int        `json:"weekly_remaining"`
	NextQuietHoursEnd *time.Time `json:"next_quiet_hours_end,omitempty"`
}
