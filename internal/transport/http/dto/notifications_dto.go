package dto

import "time"

type NotificationEvaluateRequest struct {
	Category string         `json:"category"`
	Payload  map[string]any `json:"payload,omitempty"`
}

type NotificationDecisionResponse struct {
	Allowed        bool       `json:"allowed"`
	NotificationID string     `json:"notification_id,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	RetryAt        *time.Time `json:"retry_at,omitempty"`
}

type BudgetStatusResponse struct {
	DailyRemaining    int        `json:"daily_remaining"`
	WeeklyRemaining   int        `json:"weekly_remaining"`
	NextQuietHoursEnd *time.Time `json:"next_quiet_hours_end,omitempty"`
}
