package enums

import "strings"

type NotificationCategory string

const (
	CategoryMatch        NotificationCategory = "match"
	CategoryBadgeEarned  NotificationCategory = "badge_earned"
	CategoryReEngagement NotificationCategory = "re_engagement"
	CategoryWalkReminder NotificationCategory = "walk_reminder"
)

func ParseNotificationCategory(input string) (NotificationCategory, bool) {
	switch NotificationCategory(strings.ToLower(strings.TrimSpace(input))) {
	case CategoryMatch:
		return CategoryMatch, true
	case CategoryBadgeEarned:
		return CategoryBadgeEarned, true
	case CategoryReEngagement:
		return CategoryReEngagement, true
	case CategoryWalkReminder:
		return CategoryWalkReminder, true
	default:
		return "", false
	}
}

type DenyReason string

const (
	DenyQuietHours       DenyReason = "quiet_hours"
	DenyWeeklyCap        DenyReason = "weekly_cap"
	DenyDailyCap         DenyReason = "daily_cap"
	DenyCategoryCooldown DenyReason = "category_cooldown"
)
